// Package protocol defines the opcode space of the I/O bus and the
// payload layouts of system commands.
package protocol

// Bus opcodes.
const (
	OpNOP          byte = 0x00
	OpRestart      byte = 0x01
	OpPing         byte = 0x02
	OpLEDStatus    byte = 0x03
	OpDiscover     byte = 0x04
	OpBoardInfo    byte = 0x05
	OpRequest      byte = 0x06
	OpEvent        byte = 0x07
	OpReadRegister byte = 0x0C
)

// Request sub-opcodes, carried in payload[0] of OpRequest.
const (
	// Digital
	ReqDigitalWrite        byte = 0x00
	ReqDigitalToggle       byte = 0x01
	ReqDigitalOutputMode   byte = 0x02
	ReqDigitalPWMFrequency byte = 0x03
	ReqDigitalPWMDuty      byte = 0x04
	ReqDigitalGetCurrent   byte = 0x05
	ReqDigitalOvercurrent  byte = 0x06
	ReqDigitalRead         byte = 0x07
	ReqAttachInterrupt     byte = 0x08
	ReqDetachInterrupt     byte = 0x09

	// Analog
	ReqAnalogInputMode      byte = 0x20
	ReqAnalogGetMode        byte = 0x21
	ReqAnalogVoltageRange   byte = 0x22
	ReqAnalogGetRange       byte = 0x23
	ReqAnalogRead           byte = 0x24
	ReqAnalogReadVolt       byte = 0x25
	ReqAnalogReadMillivolt  byte = 0x26
	ReqAnalogReadAmp        byte = 0x27
	ReqAnalogReadMilliamp   byte = 0x28
	ReqAnalogOutputMode     byte = 0x29
	ReqAnalogWrite          byte = 0x2A

	// Stepper motor
	ReqStepperBase byte = 0x40
	ReqStepperLast byte = 0x50

	// Brushless motor
	ReqBrushlessBase byte = 0x60
	ReqBrushlessLast byte = 0x62

	// Encoder
	ReqEncoderDirection byte = 0x81
	ReqEncoderPosition  byte = 0x82
	ReqEncoderSpeed     byte = 0x83
)

// Event types, carried in payload[0] of OpEvent.
const (
	EventDigitalInterrupt byte = 0x00
	EventMotorReady       byte = 0x01
)

var opNames = map[byte]string{
	OpNOP:          "NOP",
	OpRestart:      "RESTART",
	OpPing:         "PING",
	OpLEDStatus:    "LED_STATUS",
	OpDiscover:     "DISCOVER",
	OpBoardInfo:    "GET_BOARD_INFO",
	OpRequest:      "REQUEST",
	OpEvent:        "EVENT",
	OpReadRegister: "READ_REGISTER",
}

// OpName returns a printable name of a bus opcode.
func OpName(op byte) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// Fault codes carried in NACK payloads.
const (
	FaultInvalidArgument byte = 0x01
	FaultUnsupported     byte = 0x02
	FaultHardware        byte = 0x03
)
