package digital

import "sync"

type simPin struct {
	level     bool
	input     bool
	mode      OutputMode
	freq      uint32
	duty      float32
	current   float32
	interrupt func()
	edge      InterruptMode
}

// Sim is an in-memory Hardware. Inputs are driven with SetInput.
type Sim struct {
	lock sync.Mutex
	pins []simPin
}

// NewSim creates a Sim with n pins.
func NewSim(n int) *Sim {
	if n <= 0 {
		n = DefaultPins
	}
	return &Sim{pins: make([]simPin, n)}
}

func (s *Sim) get(pin int) (*simPin, error) {
	if pin < 0 || pin >= len(s.pins) {
		return nil, ErrInvalidPin
	}
	return &s.pins[pin], nil
}

func (s *Sim) update(pin int, fn func(p *simPin)) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	p, err := s.get(pin)
	if err != nil {
		return err
	}
	fn(p)
	return nil
}

// Pins implements Hardware.
func (s *Sim) Pins() int {
	return len(s.pins)
}

// Write implements Hardware.
func (s *Sim) Write(pin int, level bool) error {
	return s.update(pin, func(p *simPin) { p.level = level })
}

// Toggle implements Hardware.
func (s *Sim) Toggle(pin int) error {
	return s.update(pin, func(p *simPin) { p.level = !p.level })
}

// SetOutputMode implements Hardware.
func (s *Sim) SetOutputMode(pin int, mode OutputMode) error {
	return s.update(pin, func(p *simPin) { p.mode = mode })
}

// SetPWMFrequency implements Hardware.
func (s *Sim) SetPWMFrequency(pin int, hz uint32) error {
	return s.update(pin, func(p *simPin) { p.freq = hz })
}

// SetPWMDutyCycle implements Hardware.
func (s *Sim) SetPWMDutyCycle(pin int, duty float32) error {
	return s.update(pin, func(p *simPin) { p.duty = duty })
}

// OutputCurrent implements Hardware.
func (s *Sim) OutputCurrent(pin int) (v float32, err error) {
	err = s.update(pin, func(p *simPin) { v = p.current })
	return
}

// Overcurrent implements Hardware.
func (s *Sim) Overcurrent(pin int) (bool, error) {
	v, err := s.OutputCurrent(pin)
	return v > 2.0, err
}

// Read implements Hardware.
func (s *Sim) Read(pin int) (v bool, err error) {
	err = s.update(pin, func(p *simPin) { v = p.input })
	return
}

// AttachInterrupt implements Hardware.
func (s *Sim) AttachInterrupt(pin int, mode InterruptMode, fn func()) error {
	return s.update(pin, func(p *simPin) { p.interrupt, p.edge = fn, mode })
}

// DetachInterrupt implements Hardware.
func (s *Sim) DetachInterrupt(pin int) error {
	return s.update(pin, func(p *simPin) { p.interrupt = nil })
}

// Output returns the level of an output.
func (s *Sim) Output(pin int) (v bool) {
	s.update(pin, func(p *simPin) { v = p.level })
	return
}

// PWM returns the PWM settings of an output.
func (s *Sim) PWM(pin int) (mode OutputMode, hz uint32, duty float32) {
	s.update(pin, func(p *simPin) { mode, hz, duty = p.mode, p.freq, p.duty })
	return
}

// SetCurrent sets the simulated current of an output.
func (s *Sim) SetCurrent(pin int, amps float32) error {
	return s.update(pin, func(p *simPin) { p.current = amps })
}

// Armed reports whether an interrupt is attached to pin.
func (s *Sim) Armed(pin int) (armed bool) {
	s.update(pin, func(p *simPin) { armed = p.interrupt != nil })
	return
}

// SetInput drives an input and fires its interrupt on a matching edge.
func (s *Sim) SetInput(pin int, level bool) error {
	var fire func()
	err := s.update(pin, func(p *simPin) {
		if p.input == level {
			return
		}
		p.input = level
		if p.interrupt == nil {
			return
		}
		if p.edge == InterruptChange ||
			(p.edge == InterruptRising && level) ||
			(p.edge == InterruptFalling && !level) {
			fire = p.interrupt
		}
	})
	if fire != nil {
		fire()
	}
	return err
}
