package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/iobus/pkg/env"
	"github.com/robotalks/iobus/pkg/master"
	"github.com/robotalks/iobus/pkg/modules/analog"
	"github.com/robotalks/iobus/pkg/modules/digital"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/transport"
)

func TestParseForward(t *testing.T) {
	id, typ, err := parseForward("5:0")
	require.NoError(t, err)
	require.Equal(t, uint16(5), id)
	require.Equal(t, byte(0), typ)

	id, typ, err = parseForward("0x10:1")
	require.NoError(t, err)
	require.Equal(t, uint16(16), id)
	require.Equal(t, byte(1), typ)

	for _, s := range []string{"5", "x:1", "5:300", "4096:0"} {
		_, _, err = parseForward(s)
		require.Error(t, err, s)
	}
}

func startSim(t *testing.T, opts simOptions) *master.Master {
	lo := transport.NewLoopback()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s, err := newSimSlave(&env.Bus{Transport: lo.Attach()}, opts)
	require.NoError(t, err)
	s.PollInterval = 10 * time.Millisecond
	go s.Run(ctx)

	m := master.New(lo.Attach())
	m.PollInterval = 10 * time.Millisecond
	m.Options.Timeout = 100 * time.Millisecond
	go m.Run(ctx)
	require.Eventually(t, func() bool {
		_, err := m.BoardInfo(ctx, opts.id)
		return err == nil
	}, time.Second, 10*time.Millisecond)
	return m
}

func TestSimDigital(t *testing.T) {
	m := startSim(t, simOptions{id: 3, kind: "digital", serial: 42})
	ctx := context.Background()
	info, err := m.BoardInfo(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeDiscrete, info.Type)
	require.Equal(t, uint32(42), info.Serial)

	c := digital.NewClient(m, 3, digital.DefaultPins)
	defer c.Close()
	require.NoError(t, c.Write(ctx, 2, true))
	_, err = c.Read(ctx, digital.DefaultPins)
	require.Error(t, err)

	v, err := m.ReadRegister(ctx, 3, regEventDrop)
	require.NoError(t, err)
	require.Equal(t, uint32(0), v)
	_, err = m.ReadRegister(ctx, 3, 99)
	require.Error(t, err)
}

func TestSimAnalog(t *testing.T) {
	m := startSim(t, simOptions{id: 7, kind: "analog", serial: 1, channels: 2})
	ctx := context.Background()
	info, err := m.BoardInfo(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeAnalogInput, info.Type)

	c := analog.NewClient(m, 7)
	require.NoError(t, c.SetInputMode(ctx, 1, analog.InputVoltage))
	require.Error(t, c.SetInputMode(ctx, 2, analog.InputVoltage))
}

func TestSimInvalid(t *testing.T) {
	bus := &env.Bus{Transport: transport.NewLoopback().Attach()}
	_, err := newSimSlave(bus, simOptions{id: 0, kind: "digital"})
	require.Error(t, err)
	_, err = newSimSlave(bus, simOptions{id: 1, kind: "stepper"})
	require.Error(t, err)
}
