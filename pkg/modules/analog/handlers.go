package analog

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/registry"
	"github.com/robotalks/iobus/pkg/slave"
)

// Hardware is the device side of an analog I/O module.
type Hardware interface {
	Channels() int
	SetInputMode(ch int, mode InputMode) error
	InputMode(ch int) (InputMode, error)
	SetVoltageRange(ch int, rng VoltageRange) error
	VoltageRange(ch int) (VoltageRange, error)
	// Read returns the raw converter value.
	Read(ch int) (int32, error)
	ReadVolt(ch int) (float32, error)
	ReadAmp(ch int) (float32, error)
	SetOutputMode(ch int, mode OutputMode) error
	Write(ch int, value float32) error
}

type handlers struct {
	hw Hardware
}

// Register installs the analog request handlers of hw on s.
func Register(s *slave.Slave, hw Hardware) error {
	h := &handlers{hw: hw}
	for req, fn := range map[byte]registry.HandlerFunc{
		protocol.ReqAnalogInputMode:     h.setInputMode,
		protocol.ReqAnalogGetMode:       h.inputMode,
		protocol.ReqAnalogVoltageRange:  h.setVoltageRange,
		protocol.ReqAnalogGetRange:      h.voltageRange,
		protocol.ReqAnalogRead:          h.read,
		protocol.ReqAnalogReadVolt:      h.scaled(hw.ReadVolt, 1),
		protocol.ReqAnalogReadMillivolt: h.scaled(hw.ReadVolt, 1000),
		protocol.ReqAnalogReadAmp:       h.scaled(hw.ReadAmp, 1),
		protocol.ReqAnalogReadMilliamp:  h.scaled(hw.ReadAmp, 1000),
		protocol.ReqAnalogOutputMode:    h.setOutputMode,
		protocol.ReqAnalogWrite:         h.write,
	} {
		if err := s.RegisterHandler(req, fn); err != nil {
			return err
		}
	}
	return nil
}

func fault(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidChannel), errors.Is(err, ErrInvalidMode), errors.Is(err, frame.ErrShortPayload):
		return &registry.Fault{Code: protocol.FaultInvalidArgument}
	case errors.Is(err, ErrWrongMode):
		return &registry.Fault{Code: protocol.FaultUnsupported}
	default:
		glog.Warningf("analog: hardware failure: %v", err)
		return &registry.Fault{Code: protocol.FaultHardware}
	}
}

// args reads the channel and n trailing selector bytes.
func (h *handlers) args(payload []byte, n int) (int, []byte, error) {
	r := frame.NewReader(payload)
	ch := int(r.Byte())
	var rest []byte
	for i := 0; i < n; i++ {
		rest = append(rest, r.Byte())
	}
	if err := r.Err(); err != nil {
		return 0, nil, err
	}
	if ch >= h.hw.Channels() {
		return 0, nil, ErrInvalidChannel
	}
	return ch, rest, nil
}

func (h *handlers) setInputMode(ctx context.Context, payload []byte) ([]byte, error) {
	ch, sel, err := h.args(payload, 1)
	if err != nil {
		return nil, fault(err)
	}
	mode := InputMode(sel[0])
	if mode != InputVoltage && mode != InputCurrent {
		return nil, fault(ErrInvalidMode)
	}
	return nil, fault(h.hw.SetInputMode(ch, mode))
}

func (h *handlers) inputMode(ctx context.Context, payload []byte) ([]byte, error) {
	ch, _, err := h.args(payload, 0)
	if err != nil {
		return nil, fault(err)
	}
	mode, err := h.hw.InputMode(ch)
	if err != nil {
		return nil, fault(err)
	}
	return []byte{byte(mode)}, nil
}

func (h *handlers) setVoltageRange(ctx context.Context, payload []byte) ([]byte, error) {
	ch, sel, err := h.args(payload, 1)
	if err != nil {
		return nil, fault(err)
	}
	rng := VoltageRange(sel[0])
	if rng > maxRange {
		return nil, fault(ErrInvalidMode)
	}
	return nil, fault(h.hw.SetVoltageRange(ch, rng))
}

func (h *handlers) voltageRange(ctx context.Context, payload []byte) ([]byte, error) {
	ch, _, err := h.args(payload, 0)
	if err != nil {
		return nil, fault(err)
	}
	rng, err := h.hw.VoltageRange(ch)
	if err != nil {
		return nil, fault(err)
	}
	return []byte{byte(rng)}, nil
}

func (h *handlers) read(ctx context.Context, payload []byte) ([]byte, error) {
	ch, _, err := h.args(payload, 0)
	if err != nil {
		return nil, fault(err)
	}
	v, err := h.hw.Read(ch)
	if err != nil {
		return nil, fault(err)
	}
	return frame.NewWriter().Int32(v).Bytes(), nil
}

func (h *handlers) scaled(read func(int) (float32, error), scale float32) registry.HandlerFunc {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		ch, _, err := h.args(payload, 0)
		if err != nil {
			return nil, fault(err)
		}
		v, err := read(ch)
		if err != nil {
			return nil, fault(err)
		}
		return frame.NewWriter().Float32(v * scale).Bytes(), nil
	}
}

func (h *handlers) setOutputMode(ctx context.Context, payload []byte) ([]byte, error) {
	ch, sel, err := h.args(payload, 1)
	if err != nil {
		return nil, fault(err)
	}
	mode := OutputMode(sel[0])
	if mode != OutputVoltage && mode != OutputCurrent {
		return nil, fault(ErrInvalidMode)
	}
	return nil, fault(h.hw.SetOutputMode(ch, mode))
}

func (h *handlers) write(ctx context.Context, payload []byte) ([]byte, error) {
	ch, _, err := h.args(payload, 0)
	if err != nil {
		return nil, fault(err)
	}
	r := frame.NewReader(payload[1:])
	v := r.Float32()
	if err = r.Err(); err != nil {
		return nil, fault(err)
	}
	return nil, fault(h.hw.Write(ch, v))
}
