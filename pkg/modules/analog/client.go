package analog

import (
	"context"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/master"
	"github.com/robotalks/iobus/pkg/protocol"
)

// Client drives the analog I/O of one module through a Master.
type Client struct {
	master *master.Master
	id     uint16
	opts   []master.RequestOption
}

// NewClient creates a Client for module id.
func NewClient(m *master.Master, id uint16, opts ...master.RequestOption) *Client {
	return &Client{master: m, id: id, opts: opts}
}

// call sends req with the channel as first argument.
func (c *Client) call(ctx context.Context, req byte, ch int, args ...byte) (*frame.Reader, error) {
	if ch < 0 || ch > 0xff {
		return nil, ErrInvalidChannel
	}
	resp, err := c.master.Call(ctx, c.id, req, append([]byte{byte(ch)}, args...), c.opts...)
	if err != nil {
		return nil, err
	}
	return frame.NewReader(resp), nil
}

func (c *Client) float(ctx context.Context, req byte, ch int) (float32, error) {
	r, err := c.call(ctx, req, ch)
	if err != nil {
		return 0, err
	}
	v := r.Float32()
	return v, r.Err()
}

// SetInputMode selects voltage or current measurement.
func (c *Client) SetInputMode(ctx context.Context, ch int, mode InputMode) error {
	_, err := c.call(ctx, protocol.ReqAnalogInputMode, ch, byte(mode))
	return err
}

// InputMode returns the measurement mode of an input.
func (c *Client) InputMode(ctx context.Context, ch int) (InputMode, error) {
	r, err := c.call(ctx, protocol.ReqAnalogGetMode, ch)
	if err != nil {
		return 0, err
	}
	v := InputMode(r.Byte())
	return v, r.Err()
}

// SetVoltageRange selects the full scale of an input.
func (c *Client) SetVoltageRange(ctx context.Context, ch int, rng VoltageRange) error {
	_, err := c.call(ctx, protocol.ReqAnalogVoltageRange, ch, byte(rng))
	return err
}

// VoltageRange returns the full scale selection of an input.
func (c *Client) VoltageRange(ctx context.Context, ch int) (VoltageRange, error) {
	r, err := c.call(ctx, protocol.ReqAnalogGetRange, ch)
	if err != nil {
		return 0, err
	}
	v := VoltageRange(r.Byte())
	return v, r.Err()
}

// Read returns the raw converter value of an input.
func (c *Client) Read(ctx context.Context, ch int) (int32, error) {
	r, err := c.call(ctx, protocol.ReqAnalogRead, ch)
	if err != nil {
		return 0, err
	}
	v := r.Int32()
	return v, r.Err()
}

// ReadVolt reads an input in Volt.
func (c *Client) ReadVolt(ctx context.Context, ch int) (float32, error) {
	return c.float(ctx, protocol.ReqAnalogReadVolt, ch)
}

// ReadMillivolt reads an input in millivolt.
func (c *Client) ReadMillivolt(ctx context.Context, ch int) (float32, error) {
	return c.float(ctx, protocol.ReqAnalogReadMillivolt, ch)
}

// ReadAmp reads an input in Ampere.
func (c *Client) ReadAmp(ctx context.Context, ch int) (float32, error) {
	return c.float(ctx, protocol.ReqAnalogReadAmp, ch)
}

// ReadMilliamp reads an input in milliampere.
func (c *Client) ReadMilliamp(ctx context.Context, ch int) (float32, error) {
	return c.float(ctx, protocol.ReqAnalogReadMilliamp, ch)
}

// SetOutputMode selects voltage or current drive of an output.
func (c *Client) SetOutputMode(ctx context.Context, ch int, mode OutputMode) error {
	_, err := c.call(ctx, protocol.ReqAnalogOutputMode, ch, byte(mode))
	return err
}

// Write sets an output in Volt or milliampere depending on its mode.
func (c *Client) Write(ctx context.Context, ch int, value float32) error {
	_, err := c.call(ctx, protocol.ReqAnalogWrite, ch, frame.NewWriter().Float32(value).Bytes()...)
	return err
}
