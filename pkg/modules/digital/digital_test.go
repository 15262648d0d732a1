package digital

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/iobus/pkg/master"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/slave"
	"github.com/robotalks/iobus/pkg/transport"
)

const testModuleID = 5

type digitalTestEnv struct {
	ctx    context.Context
	master *master.Master
	hw     *Sim
	client *Client
}

func newDigitalTestEnv(t *testing.T) *digitalTestEnv {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a, b := transport.NewPipe()

	env := &digitalTestEnv{ctx: ctx, master: master.New(a), hw: NewSim(4)}
	env.master.PollInterval = 10 * time.Millisecond
	s := slave.New(b, testModuleID, protocol.BoardInfo{Type: protocol.TypeDiscrete, Serial: 1})
	s.PollInterval = 10 * time.Millisecond
	require.NoError(t, Register(s, env.hw))

	go env.master.Run(ctx)
	go s.Run(ctx)
	require.Eventually(t, func() bool {
		_, err := env.master.Request(ctx, testModuleID, protocol.OpNOP, nil)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	env.client = NewClient(env.master, testModuleID, env.hw.Pins())
	return env
}

func requireFault(t *testing.T, err error, code byte) {
	var nack *master.NackError
	require.True(t, errors.As(err, &nack), "expect NACK, got %v", err)
	got, ok := nack.Code()
	require.True(t, ok)
	require.Equal(t, code, got)
}

func TestWriteToggle(t *testing.T) {
	env := newDigitalTestEnv(t)
	require.NoError(t, env.client.Write(env.ctx, 2, true))
	require.True(t, env.hw.Output(2))
	require.NoError(t, env.client.Toggle(env.ctx, 2))
	require.False(t, env.hw.Output(2))
}

func TestRead(t *testing.T) {
	env := newDigitalTestEnv(t)
	level, err := env.client.Read(env.ctx, 3)
	require.NoError(t, err)
	require.False(t, level)
	env.hw.SetInput(3, true)
	level, err = env.client.Read(env.ctx, 3)
	require.NoError(t, err)
	require.True(t, level)
}

func TestPWM(t *testing.T) {
	env := newDigitalTestEnv(t)
	require.NoError(t, env.client.SetOutputMode(env.ctx, 1, ModePWM))
	require.NoError(t, env.client.SetPWMFrequency(env.ctx, 1, 200))
	require.NoError(t, env.client.SetPWMDutyCycle(env.ctx, 1, 50.0))
	mode, hz, duty := env.hw.PWM(1)
	require.Equal(t, ModePWM, mode)
	require.Equal(t, uint32(200), hz)
	require.Equal(t, float32(50.0), duty)

	requireFault(t, env.client.SetPWMFrequency(env.ctx, 1, 5000), protocol.FaultInvalidArgument)
	requireFault(t, env.client.SetPWMDutyCycle(env.ctx, 1, 101), protocol.FaultInvalidArgument)
}

func TestCurrent(t *testing.T) {
	env := newDigitalTestEnv(t)
	env.hw.SetCurrent(0, 2.5)
	amps, err := env.client.OutputCurrent(env.ctx, 0)
	require.NoError(t, err)
	require.Equal(t, float32(2.5), amps)
	over, err := env.client.Overcurrent(env.ctx, 0)
	require.NoError(t, err)
	require.True(t, over)
}

func TestInvalidPin(t *testing.T) {
	env := newDigitalTestEnv(t)
	sent := env.master.Stats().Sent
	// out of range pins never wrap onto a pin of the module
	for _, pin := range []int{4, 9, 258, -1, -255} {
		require.Equal(t, ErrInvalidPin, env.client.Write(env.ctx, pin, true), "pin %d", pin)
		require.Equal(t, ErrInvalidPin, env.client.Toggle(env.ctx, pin), "pin %d", pin)
		_, err := env.client.Read(env.ctx, pin)
		require.Equal(t, ErrInvalidPin, err, "pin %d", pin)
		require.Equal(t, ErrInvalidPin, env.client.DetachInterrupt(env.ctx, pin), "pin %d", pin)
	}
	for pin := 0; pin < env.hw.Pins(); pin++ {
		require.False(t, env.hw.Output(pin))
	}
	require.Equal(t, sent, env.master.Stats().Sent)

	_, err := env.master.Call(env.ctx, testModuleID, protocol.ReqDigitalWrite, []byte{9, 1})
	requireFault(t, err, protocol.FaultInvalidArgument)
	_, err = env.master.Call(env.ctx, testModuleID, protocol.ReqDigitalWrite, nil)
	requireFault(t, err, protocol.FaultInvalidArgument)
}

func TestInterrupt(t *testing.T) {
	env := newDigitalTestEnv(t)
	fired := make(chan int, 4)
	require.NoError(t, env.client.AttachInterrupt(env.ctx, 1, InterruptRising, func(pin int) { fired <- pin }))
	require.True(t, env.hw.Armed(1))

	env.hw.SetInput(1, true)
	select {
	case pin := <-fired:
		require.Equal(t, 1, pin)
	case <-time.After(time.Second):
		t.Fatal("interrupt not delivered")
	}
	env.hw.SetInput(1, false)

	require.NoError(t, env.client.DetachInterrupt(env.ctx, 1))
	require.False(t, env.hw.Armed(1))
	env.hw.SetInput(1, true)
	select {
	case <-fired:
		t.Fatal("detached interrupt delivered")
	case <-time.After(30 * time.Millisecond):
	}

	require.Error(t, env.client.AttachInterrupt(env.ctx, 7, InterruptChange, func(int) {}))
}

func TestRestartDetachesInterrupts(t *testing.T) {
	env := newDigitalTestEnv(t)
	require.NoError(t, env.client.AttachInterrupt(env.ctx, 0, InterruptChange, func(int) {}))
	require.NoError(t, env.client.AttachInterrupt(env.ctx, 2, InterruptChange, func(int) {}))
	require.NoError(t, env.master.Restart(env.ctx, testModuleID))
	require.Eventually(t, func() bool {
		return !env.hw.Armed(0) && !env.hw.Armed(2)
	}, time.Second, time.Millisecond)
}

func TestSimEdges(t *testing.T) {
	hw := NewSim(1)
	count := 0
	hw.AttachInterrupt(0, InterruptFalling, func() { count++ })
	hw.SetInput(0, true)
	hw.SetInput(0, true)
	require.Equal(t, 0, count)
	hw.SetInput(0, false)
	require.Equal(t, 1, count)
	require.Equal(t, ErrInvalidPin, hw.Write(1, true))
	_, err := hw.Read(-1)
	require.Equal(t, ErrInvalidPin, err)
	require.Equal(t, 1, hw.Pins())
}
