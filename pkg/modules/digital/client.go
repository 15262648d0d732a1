package digital

import (
	"context"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/master"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/registry"
)

// Client drives the digital I/O of one module through a Master.
type Client struct {
	master     *master.Master
	id         uint16
	opts       []master.RequestOption
	interrupts *registry.Table
}

// InterruptFunc is called when an attached input fires.
type InterruptFunc func(pin int)

// NewClient creates a Client for module id with the given number of pins.
// Interrupt events of the module are routed to the callbacks installed by
// AttachInterrupt.
func NewClient(m *master.Master, id uint16, pins int, opts ...master.RequestOption) *Client {
	if pins <= 0 {
		pins = DefaultPins
	}
	c := &Client{master: m, id: id, opts: opts, interrupts: registry.NewTable(pins)}
	m.Subscribe(protocol.EventDigitalInterrupt, id, c.onInterrupt)
	return c
}

// Close stops interrupt routing.
func (c *Client) Close() error {
	c.master.Unsubscribe(protocol.EventDigitalInterrupt, c.id)
	c.interrupts.ClearAll()
	return nil
}

func (c *Client) onInterrupt(ev master.Event) {
	if len(ev.Payload) == 0 {
		return
	}
	c.interrupts.Invoke(int(ev.Payload[0]), ev.Payload[1:])
}

// call sends req with the pin as first argument. Pins outside the module
// fail locally so a wrapped byte never selects another pin.
func (c *Client) call(ctx context.Context, req byte, pin int, args ...byte) ([]byte, error) {
	if pin < 0 || pin >= c.interrupts.Size() {
		return nil, ErrInvalidPin
	}
	return c.master.Call(ctx, c.id, req, append([]byte{byte(pin)}, args...), c.opts...)
}

// Write sets an output level.
func (c *Client) Write(ctx context.Context, pin int, level bool) error {
	_, err := c.call(ctx, protocol.ReqDigitalWrite, pin, frame.NewWriter().Bool(level).Bytes()...)
	return err
}

// Toggle inverts an output.
func (c *Client) Toggle(ctx context.Context, pin int) error {
	_, err := c.call(ctx, protocol.ReqDigitalToggle, pin)
	return err
}

// SetOutputMode switches an output between digital and PWM drive.
func (c *Client) SetOutputMode(ctx context.Context, pin int, mode OutputMode) error {
	_, err := c.call(ctx, protocol.ReqDigitalOutputMode, pin, byte(mode))
	return err
}

// SetPWMFrequency sets the PWM frequency of an output in Hz.
func (c *Client) SetPWMFrequency(ctx context.Context, pin int, hz uint32) error {
	_, err := c.call(ctx, protocol.ReqDigitalPWMFrequency, pin, frame.NewWriter().Uint32(hz).Bytes()...)
	return err
}

// SetPWMDutyCycle sets the PWM duty cycle of an output in percent.
func (c *Client) SetPWMDutyCycle(ctx context.Context, pin int, duty float32) error {
	_, err := c.call(ctx, protocol.ReqDigitalPWMDuty, pin, frame.NewWriter().Float32(duty).Bytes()...)
	return err
}

// OutputCurrent reads the current of an output in Ampere.
func (c *Client) OutputCurrent(ctx context.Context, pin int) (float32, error) {
	resp, err := c.call(ctx, protocol.ReqDigitalGetCurrent, pin)
	if err != nil {
		return 0, err
	}
	r := frame.NewReader(resp)
	v := r.Float32()
	return v, r.Err()
}

// Overcurrent reports whether an output tripped its current limit.
func (c *Client) Overcurrent(ctx context.Context, pin int) (bool, error) {
	resp, err := c.call(ctx, protocol.ReqDigitalOvercurrent, pin)
	if err != nil {
		return false, err
	}
	r := frame.NewReader(resp)
	v := r.Bool()
	return v, r.Err()
}

// Read reads an input level.
func (c *Client) Read(ctx context.Context, pin int) (bool, error) {
	resp, err := c.call(ctx, protocol.ReqDigitalRead, pin)
	if err != nil {
		return false, err
	}
	r := frame.NewReader(resp)
	v := r.Bool()
	return v, r.Err()
}

// AttachInterrupt installs fn for an input and arms the interrupt on the
// module. A previous callback of the pin is replaced.
func (c *Client) AttachInterrupt(ctx context.Context, pin int, mode InterruptMode, fn InterruptFunc) error {
	err := c.interrupts.Set(pin, func([]byte) { fn(pin) })
	if err != nil {
		return err
	}
	if _, err = c.call(ctx, protocol.ReqAttachInterrupt, pin, byte(mode)); err != nil {
		c.interrupts.Clear(pin)
	}
	return err
}

// DetachInterrupt disarms the interrupt of an input.
func (c *Client) DetachInterrupt(ctx context.Context, pin int) error {
	if err := c.interrupts.Clear(pin); err != nil {
		return err
	}
	_, err := c.call(ctx, protocol.ReqDetachInterrupt, pin)
	return err
}
