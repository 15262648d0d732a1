package protocol

import (
	"fmt"
	"time"

	"github.com/robotalks/iobus/pkg/frame"
)

// Module types.
const (
	TypeUnknown     uint16 = 0
	TypeDiscrete    uint16 = 1
	TypeStepper     uint16 = 2
	TypeMixed       uint16 = 3
	TypeRelayLP     uint16 = 4
	TypeRelayHP     uint16 = 5
	TypeAnalogLS    uint16 = 6
	TypeBrushless   uint16 = 7
	TypeDC          uint16 = 8
	TypeAnalogInput uint16 = 9
)

var typeNames = map[uint16]string{
	TypeDiscrete:    "discrete",
	TypeStepper:     "stepper",
	TypeMixed:       "mixed",
	TypeRelayLP:     "relay-lp",
	TypeRelayHP:     "relay-hp",
	TypeAnalogLS:    "analog-ls",
	TypeBrushless:   "brushless",
	TypeDC:          "dc",
	TypeAnalogInput: "analog-input",
}

// TypeName returns the name of a module type.
func TypeName(typ uint16) string {
	if name, ok := typeNames[typ]; ok {
		return name
	}
	return fmt.Sprintf("type-%d", typ)
}

// Announce is the payload of PING requests and DISCOVER answers.
type Announce struct {
	Type   uint16
	Serial uint32
}

// Bytes encodes the payload.
func (a Announce) Bytes() []byte {
	return frame.NewWriter().Uint16(a.Type).Uint32(a.Serial).Bytes()
}

// ParseAnnounce decodes the payload.
func ParseAnnounce(b []byte) (a Announce, err error) {
	r := frame.NewReader(b)
	a.Type, a.Serial = r.Uint16(), r.Uint32()
	return a, r.Err()
}

// BoardInfo is the payload of GET_BOARD_INFO answers.
type BoardInfo struct {
	Type            uint16
	Variant         byte
	Serial          uint32
	ManufacturedAt  time.Time
	SoftwareVersion string
}

// Bytes encodes the payload.
func (b BoardInfo) Bytes() []byte {
	var ts int64
	if !b.ManufacturedAt.IsZero() {
		ts = b.ManufacturedAt.Unix()
	}
	return frame.NewWriter().
		Uint16(b.Type).
		Byte(b.Variant).
		Uint32(b.Serial).
		Int64(ts).
		String(b.SoftwareVersion).
		Bytes()
}

// ParseBoardInfo decodes the payload.
func ParseBoardInfo(p []byte) (b BoardInfo, err error) {
	r := frame.NewReader(p)
	b.Type = r.Uint16()
	b.Variant = r.Byte()
	b.Serial = r.Uint32()
	if ts := r.Int64(); ts != 0 {
		b.ManufacturedAt = time.Unix(ts, 0).UTC()
	}
	b.SoftwareVersion = r.String()
	return b, r.Err()
}

// LED states.
const (
	LEDOn    byte = 0x00
	LEDOff   byte = 0x01
	LEDBlink byte = 0x02
)

// LED colors.
const (
	LEDNone   byte = 0x00
	LEDRed    byte = 0x01
	LEDGreen  byte = 0x02
	LEDYellow byte = 0x03
	LEDBlue   byte = 0x04
	LEDPurple byte = 0x05
	LEDCyan   byte = 0x06
	LEDWhite  byte = 0x07
)

// LED is the payload of LED_STATUS.
type LED struct {
	State  byte
	Color  byte
	Period time.Duration
}

// Bytes encodes the payload, period in milliseconds.
func (l LED) Bytes() []byte {
	return frame.NewWriter(l.State, l.Color).Uint32(uint32(l.Period / time.Millisecond)).Bytes()
}

// ParseLED decodes the payload.
func ParseLED(p []byte) (l LED, err error) {
	r := frame.NewReader(p)
	l.State, l.Color = r.Byte(), r.Byte()
	l.Period = time.Duration(r.Uint32()) * time.Millisecond
	return l, r.Err()
}
