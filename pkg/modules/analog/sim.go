package analog

import "sync"

// resolution of the simulated converter.
const simCounts = 1 << 23

type simChannel struct {
	inMode  InputMode
	rng     VoltageRange
	volts   float32
	amps    float32
	outMode OutputMode
	output  float32
}

// Sim is an in-memory Hardware. Inputs are driven with SetVoltage and
// SetCurrent.
type Sim struct {
	lock     sync.Mutex
	channels []simChannel
}

// NewSim creates a Sim with n channels.
func NewSim(n int) *Sim {
	if n <= 0 {
		n = DefaultChannels
	}
	return &Sim{channels: make([]simChannel, n)}
}

func (s *Sim) with(ch int, fn func(c *simChannel) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if ch < 0 || ch >= len(s.channels) {
		return ErrInvalidChannel
	}
	return fn(&s.channels[ch])
}

// Channels implements Hardware.
func (s *Sim) Channels() int {
	return len(s.channels)
}

// SetInputMode implements Hardware.
func (s *Sim) SetInputMode(ch int, mode InputMode) error {
	return s.with(ch, func(c *simChannel) error { c.inMode = mode; return nil })
}

// InputMode implements Hardware.
func (s *Sim) InputMode(ch int) (mode InputMode, err error) {
	err = s.with(ch, func(c *simChannel) error { mode = c.inMode; return nil })
	return
}

// SetVoltageRange implements Hardware.
func (s *Sim) SetVoltageRange(ch int, rng VoltageRange) error {
	return s.with(ch, func(c *simChannel) error { c.rng = rng; return nil })
}

// VoltageRange implements Hardware.
func (s *Sim) VoltageRange(ch int) (rng VoltageRange, err error) {
	err = s.with(ch, func(c *simChannel) error { rng = c.rng; return nil })
	return
}

// Read implements Hardware.
func (s *Sim) Read(ch int) (v int32, err error) {
	err = s.with(ch, func(c *simChannel) error {
		full := c.rng.FullScale()
		volts := c.volts
		if volts > full {
			volts = full
		} else if volts < -full {
			volts = -full
		}
		v = int32(volts / full * (simCounts - 1))
		return nil
	})
	return
}

// ReadVolt implements Hardware.
func (s *Sim) ReadVolt(ch int) (v float32, err error) {
	err = s.with(ch, func(c *simChannel) error {
		if c.inMode != InputVoltage {
			return ErrWrongMode
		}
		v = c.volts
		return nil
	})
	return
}

// ReadAmp implements Hardware.
func (s *Sim) ReadAmp(ch int) (v float32, err error) {
	err = s.with(ch, func(c *simChannel) error {
		if c.inMode != InputCurrent {
			return ErrWrongMode
		}
		v = c.amps
		return nil
	})
	return
}

// SetOutputMode implements Hardware.
func (s *Sim) SetOutputMode(ch int, mode OutputMode) error {
	return s.with(ch, func(c *simChannel) error { c.outMode = mode; return nil })
}

// Write implements Hardware.
func (s *Sim) Write(ch int, value float32) error {
	return s.with(ch, func(c *simChannel) error { c.output = value; return nil })
}

// SetVoltage drives the voltage seen by an input.
func (s *Sim) SetVoltage(ch int, volts float32) error {
	return s.with(ch, func(c *simChannel) error { c.volts = volts; return nil })
}

// SetCurrent drives the current seen by an input.
func (s *Sim) SetCurrent(ch int, amps float32) error {
	return s.with(ch, func(c *simChannel) error { c.amps = amps; return nil })
}

// Output returns the mode and value of an output.
func (s *Sim) Output(ch int) (mode OutputMode, value float32) {
	s.with(ch, func(c *simChannel) error { mode, value = c.outMode, c.output; return nil })
	return
}
