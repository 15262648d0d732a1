package digital

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/registry"
	"github.com/robotalks/iobus/pkg/slave"
)

// Hardware is the device side of a digital I/O module.
type Hardware interface {
	Pins() int
	Write(pin int, level bool) error
	Toggle(pin int) error
	SetOutputMode(pin int, mode OutputMode) error
	SetPWMFrequency(pin int, hz uint32) error
	SetPWMDutyCycle(pin int, duty float32) error
	OutputCurrent(pin int) (float32, error)
	Overcurrent(pin int) (bool, error)
	Read(pin int) (bool, error)
	// AttachInterrupt arms an input. fn may be called from interrupt
	// context and must not block.
	AttachInterrupt(pin int, mode InterruptMode, fn func()) error
	DetachInterrupt(pin int) error
}

type handlers struct {
	hw     Hardware
	events *slave.EventQueue

	lock     sync.Mutex
	attached map[int]bool
}

// Register installs the digital request handlers of hw on s. RESTART
// detaches every interrupt armed through the bus.
func Register(s *slave.Slave, hw Hardware) error {
	h := &handlers{hw: hw, events: s.Events(), attached: make(map[int]bool)}
	for req, fn := range map[byte]registry.HandlerFunc{
		protocol.ReqDigitalWrite:        h.write,
		protocol.ReqDigitalToggle:       h.toggle,
		protocol.ReqDigitalOutputMode:   h.outputMode,
		protocol.ReqDigitalPWMFrequency: h.pwmFrequency,
		protocol.ReqDigitalPWMDuty:      h.pwmDuty,
		protocol.ReqDigitalGetCurrent:   h.current,
		protocol.ReqDigitalOvercurrent:  h.overcurrent,
		protocol.ReqDigitalRead:         h.read,
		protocol.ReqAttachInterrupt:     h.attachInterrupt,
		protocol.ReqDetachInterrupt:     h.detachInterrupt,
	} {
		if err := s.RegisterHandler(req, fn); err != nil {
			return err
		}
	}
	s.RegisterResetHandler(h.reset)
	return nil
}

func fault(err error) error {
	var rangeErr *RangeError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidPin), errors.As(err, &rangeErr), errors.Is(err, frame.ErrShortPayload):
		return &registry.Fault{Code: protocol.FaultInvalidArgument}
	default:
		glog.Warningf("digital: hardware failure: %v", err)
		return &registry.Fault{Code: protocol.FaultHardware}
	}
}

func (h *handlers) pin(r *frame.Reader) (int, error) {
	pin := int(r.Byte())
	if err := r.Err(); err != nil {
		return 0, err
	}
	if pin >= h.hw.Pins() {
		return 0, ErrInvalidPin
	}
	return pin, nil
}

func (h *handlers) write(ctx context.Context, payload []byte) ([]byte, error) {
	r := frame.NewReader(payload)
	pin, err := h.pin(r)
	if err != nil {
		return nil, fault(err)
	}
	level := r.Bool()
	if err = r.Err(); err != nil {
		return nil, fault(err)
	}
	return nil, fault(h.hw.Write(pin, level))
}

func (h *handlers) toggle(ctx context.Context, payload []byte) ([]byte, error) {
	pin, err := h.pin(frame.NewReader(payload))
	if err != nil {
		return nil, fault(err)
	}
	return nil, fault(h.hw.Toggle(pin))
}

func (h *handlers) outputMode(ctx context.Context, payload []byte) ([]byte, error) {
	r := frame.NewReader(payload)
	pin, err := h.pin(r)
	if err != nil {
		return nil, fault(err)
	}
	mode := OutputMode(r.Byte())
	if err = r.Err(); err != nil {
		return nil, fault(err)
	}
	if mode != ModeDigital && mode != ModePWM {
		return nil, fault(&RangeError{What: "output mode", Value: float64(mode)})
	}
	return nil, fault(h.hw.SetOutputMode(pin, mode))
}

func (h *handlers) pwmFrequency(ctx context.Context, payload []byte) ([]byte, error) {
	r := frame.NewReader(payload)
	pin, err := h.pin(r)
	if err != nil {
		return nil, fault(err)
	}
	hz := r.Uint32()
	if err = r.Err(); err != nil {
		return nil, fault(err)
	}
	if hz < MinPWMFrequency || hz > MaxPWMFrequency {
		return nil, fault(&RangeError{What: "PWM frequency", Value: float64(hz)})
	}
	return nil, fault(h.hw.SetPWMFrequency(pin, hz))
}

func (h *handlers) pwmDuty(ctx context.Context, payload []byte) ([]byte, error) {
	r := frame.NewReader(payload)
	pin, err := h.pin(r)
	if err != nil {
		return nil, fault(err)
	}
	duty := r.Float32()
	if err = r.Err(); err != nil {
		return nil, fault(err)
	}
	if duty < 0 || duty > 100 {
		return nil, fault(&RangeError{What: "duty cycle", Value: float64(duty)})
	}
	return nil, fault(h.hw.SetPWMDutyCycle(pin, duty))
}

func (h *handlers) current(ctx context.Context, payload []byte) ([]byte, error) {
	pin, err := h.pin(frame.NewReader(payload))
	if err != nil {
		return nil, fault(err)
	}
	v, err := h.hw.OutputCurrent(pin)
	if err != nil {
		return nil, fault(err)
	}
	return frame.NewWriter().Float32(v).Bytes(), nil
}

func (h *handlers) overcurrent(ctx context.Context, payload []byte) ([]byte, error) {
	pin, err := h.pin(frame.NewReader(payload))
	if err != nil {
		return nil, fault(err)
	}
	v, err := h.hw.Overcurrent(pin)
	if err != nil {
		return nil, fault(err)
	}
	return frame.NewWriter().Bool(v).Bytes(), nil
}

func (h *handlers) read(ctx context.Context, payload []byte) ([]byte, error) {
	pin, err := h.pin(frame.NewReader(payload))
	if err != nil {
		return nil, fault(err)
	}
	v, err := h.hw.Read(pin)
	if err != nil {
		return nil, fault(err)
	}
	return frame.NewWriter().Bool(v).Bytes(), nil
}

func (h *handlers) attachInterrupt(ctx context.Context, payload []byte) ([]byte, error) {
	r := frame.NewReader(payload)
	pin, err := h.pin(r)
	if err != nil {
		return nil, fault(err)
	}
	mode := InterruptMode(r.Byte())
	if err = r.Err(); err != nil {
		return nil, fault(err)
	}
	if mode > InterruptChange {
		return nil, fault(&RangeError{What: "interrupt mode", Value: float64(mode)})
	}
	evt := []byte{byte(pin)}
	err = h.hw.AttachInterrupt(pin, mode, func() {
		if err := h.events.Post(protocol.EventDigitalInterrupt, evt); err != nil {
			glog.V(1).Infof("digital: interrupt of pin %d lost: %v", pin, err)
		}
	})
	if err != nil {
		return nil, fault(err)
	}
	h.lock.Lock()
	h.attached[pin] = true
	h.lock.Unlock()
	return nil, nil
}

func (h *handlers) detachInterrupt(ctx context.Context, payload []byte) ([]byte, error) {
	pin, err := h.pin(frame.NewReader(payload))
	if err != nil {
		return nil, fault(err)
	}
	h.lock.Lock()
	delete(h.attached, pin)
	h.lock.Unlock()
	return nil, fault(h.hw.DetachInterrupt(pin))
}

func (h *handlers) reset() {
	h.lock.Lock()
	pins := h.attached
	h.attached = make(map[int]bool)
	h.lock.Unlock()
	for pin := range pins {
		if err := h.hw.DetachInterrupt(pin); err != nil {
			glog.Warningf("digital: detach interrupt of pin %d: %v", pin, err)
		}
	}
}
