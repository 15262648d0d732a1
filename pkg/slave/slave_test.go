package slave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/master"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/registry"
	"github.com/robotalks/iobus/pkg/transport"
)

type slaveTestEnv struct {
	t      *testing.T
	bus    *transport.Loopback
	master *master.Master
	ctx    context.Context
	cancel context.CancelFunc
}

func newSlaveTestEnv(t *testing.T) *slaveTestEnv {
	env := &slaveTestEnv{t: t, bus: transport.NewLoopback()}
	env.ctx, env.cancel = context.WithCancel(context.Background())
	t.Cleanup(env.cancel)
	env.master = master.New(env.bus.Attach())
	env.master.PollInterval = 10 * time.Millisecond
	env.master.Options.Timeout = 50 * time.Millisecond
	go env.master.Run(env.ctx)
	require.Eventually(t, func() bool {
		_, err := env.master.Request(env.ctx, frame.BroadcastID, protocol.OpNOP, nil)
		return err == nil
	}, time.Second, time.Millisecond)
	return env
}

func (e *slaveTestEnv) slave(id uint16, serial uint32, setup func(*Slave)) *Slave {
	s := New(e.bus.Attach(), id, protocol.BoardInfo{
		Type:            protocol.TypeDiscrete,
		Serial:          serial,
		SoftwareVersion: "0.1.0",
	})
	s.PollInterval = 10 * time.Millisecond
	if setup != nil {
		setup(s)
	}
	go s.Run(e.ctx)
	return s
}

// observe attaches a raw endpoint and returns the frames it sees.
func (e *slaveTestEnv) observe() func() []*frame.Frame {
	ep := e.bus.Attach()
	var lock sync.Mutex
	var frames []*frame.Frame
	go func() {
		for e.ctx.Err() == nil {
			b, err := ep.Receive(10 * time.Millisecond)
			if err != nil {
				continue
			}
			if f, _, err := frame.Decode(b); err == nil {
				lock.Lock()
				frames = append(frames, f)
				lock.Unlock()
			}
		}
	}()
	return func() []*frame.Frame {
		lock.Lock()
		defer lock.Unlock()
		return append([]*frame.Frame(nil), frames...)
	}
}

func fromSlaves(frames []*frame.Frame) (out []*frame.Frame) {
	for _, f := range frames {
		if f.Dir == frame.SlaveToMaster {
			out = append(out, f)
		}
	}
	return
}

func TestDigitalRead(t *testing.T) {
	env := newSlaveTestEnv(t)
	env.slave(5, 1, func(s *Slave) {
		require.NoError(t, s.RegisterHandlerFunc(protocol.ReqDigitalRead, func(ctx context.Context, payload []byte) ([]byte, error) {
			require.Equal(t, []byte{3}, payload)
			return []byte{1}, nil
		}))
	})
	resp, err := env.master.Call(env.ctx, 5, protocol.ReqDigitalRead, []byte{3})
	require.NoError(t, err)
	require.Equal(t, []byte{1}, resp)
}

func TestPWMDutyFloat(t *testing.T) {
	env := newSlaveTestEnv(t)
	got := make(chan float32, 1)
	env.slave(5, 1, func(s *Slave) {
		s.RegisterHandlerFunc(protocol.ReqDigitalPWMDuty, func(ctx context.Context, payload []byte) ([]byte, error) {
			r := frame.NewReader(payload)
			r.Byte()
			got <- r.Float32()
			return nil, r.Err()
		})
	})
	_, err := env.master.Call(env.ctx, 5, protocol.ReqDigitalPWMDuty, frame.NewWriter(1).Float32(50.0).Bytes())
	require.NoError(t, err)
	require.Equal(t, float32(50.0), <-got)
}

func TestUnknownOpcodeNack(t *testing.T) {
	env := newSlaveTestEnv(t)
	env.slave(5, 1, nil)

	_, err := env.master.Call(env.ctx, 5, 0x55, nil)
	var nack *master.NackError
	require.True(t, errors.As(err, &nack))
	require.Empty(t, nack.Payload)

	_, err = env.master.Request(env.ctx, 5, 0x30, nil)
	require.True(t, master.IsNack(err))

	_, err = env.master.Request(env.ctx, 5, protocol.OpRequest, nil)
	require.True(t, master.IsNack(err))
}

func TestFaultCode(t *testing.T) {
	env := newSlaveTestEnv(t)
	env.slave(5, 1, func(s *Slave) {
		s.RegisterHandlerFunc(protocol.ReqAnalogRead, func(ctx context.Context, payload []byte) ([]byte, error) {
			return nil, &registry.Fault{Code: 3}
		})
	})
	_, err := env.master.Call(env.ctx, 5, protocol.ReqAnalogRead, []byte{0})
	var nack *master.NackError
	require.True(t, errors.As(err, &nack))
	code, ok := nack.Code()
	require.True(t, ok)
	require.Equal(t, byte(3), code)
}

func TestRegisterAfterRun(t *testing.T) {
	env := newSlaveTestEnv(t)
	s := env.slave(5, 1, nil)
	_, err := env.master.Request(env.ctx, 5, protocol.OpNOP, nil)
	require.NoError(t, err)
	err = s.RegisterHandlerFunc(0x10, func(context.Context, []byte) ([]byte, error) { return nil, nil })
	require.Equal(t, registry.ErrFrozen, err)
}

func TestIgnoresOtherIDs(t *testing.T) {
	env := newSlaveTestEnv(t)
	for _, id := range []uint16{5, 6, 7} {
		id := id
		env.slave(id, uint32(id), func(s *Slave) {
			s.RegisterHandlerFunc(protocol.ReqDigitalRead, func(ctx context.Context, payload []byte) ([]byte, error) {
				return []byte{byte(id)}, nil
			})
		})
	}
	frames := env.observe()
	resp, err := env.master.Call(env.ctx, 6, protocol.ReqDigitalRead, []byte{0})
	require.NoError(t, err)
	require.Equal(t, []byte{6}, resp)
	time.Sleep(30 * time.Millisecond)
	replies := fromSlaves(frames())
	require.Len(t, replies, 1)
	require.Equal(t, uint16(6), replies[0].ID)
}

func TestPingAndDiscover(t *testing.T) {
	env := newSlaveTestEnv(t)
	for id := uint16(1); id <= 3; id++ {
		env.slave(id, 100+uint32(id), func(s *Slave) {
			s.DiscoverSlot = time.Millisecond
		})
	}
	found, err := env.master.Discover(env.ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, found, 3)
	for n, ident := range found {
		require.Equal(t, uint16(n+1), ident.ID)
		require.Equal(t, 101+uint32(n), ident.Serial)
	}

	id, err := env.master.Ping(env.ctx, protocol.TypeDiscrete, 102)
	require.NoError(t, err)
	require.Equal(t, uint16(2), id)

	_, err = env.master.Ping(env.ctx, protocol.TypeStepper, 102, master.WithRetries(0))
	require.Error(t, err)
}

func TestDiscoverSlotKeepsServing(t *testing.T) {
	env := newSlaveTestEnv(t)
	s := env.slave(3, 33, func(s *Slave) {
		s.DiscoverSlot = 100 * time.Millisecond
	})
	frames := env.observe()
	ep := env.bus.Attach()
	send := func(id uint16, opcode byte) {
		b, err := frame.Encode(opcode, frame.Header{ID: id, Dir: frame.MasterToSlave, Ack: true}, nil)
		require.NoError(t, err)
		require.NoError(t, ep.Send(env.ctx, b))
	}
	opcodes := func() (ops []byte) {
		for _, f := range fromSlaves(frames()) {
			ops = append(ops, f.Opcode)
		}
		return
	}

	send(frame.BroadcastID, protocol.OpDiscover)
	send(3, protocol.OpBoardInfo)
	require.Eventually(t, func() bool { return len(opcodes()) == 1 }, 200*time.Millisecond, time.Millisecond)
	require.Equal(t, []byte{protocol.OpBoardInfo}, opcodes())

	require.NoError(t, s.SendEvent(protocol.EventDigitalInterrupt, []byte{1}))
	require.Eventually(t, func() bool { return len(opcodes()) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, []byte{protocol.OpBoardInfo, protocol.OpEvent, protocol.OpDiscover}, opcodes())
	ann, err := protocol.ParseAnnounce(fromSlaves(frames())[2].Payload)
	require.NoError(t, err)
	require.Equal(t, uint32(33), ann.Serial)
}

func TestBoardInfo(t *testing.T) {
	env := newSlaveTestEnv(t)
	env.slave(4, 4444, nil)
	info, err := env.master.BoardInfo(env.ctx, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(4444), info.Serial)
	require.Equal(t, "0.1.0", info.SoftwareVersion)
}

func TestRestartRunsResetHandlers(t *testing.T) {
	env := newSlaveTestEnv(t)
	var resets int32
	for _, id := range []uint16{1, 2} {
		env.slave(id, uint32(id), func(s *Slave) {
			s.RegisterResetHandler(func() { atomic.AddInt32(&resets, 1) })
		})
	}
	frames := env.observe()
	require.NoError(t, env.master.Restart(env.ctx, 1))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&resets) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, env.master.Restart(env.ctx, frame.BroadcastID))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&resets) == 3 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, fromSlaves(frames()))
}

func TestNoAckExecutedNotAnswered(t *testing.T) {
	env := newSlaveTestEnv(t)
	called := make(chan []byte, 1)
	env.slave(5, 1, func(s *Slave) {
		s.RegisterHandlerFunc(protocol.ReqDigitalWrite, func(ctx context.Context, payload []byte) ([]byte, error) {
			called <- payload
			return nil, nil
		})
	})
	frames := env.observe()
	_, err := env.master.Call(env.ctx, 5, protocol.ReqDigitalWrite, []byte{2, 1}, master.WithoutAck())
	require.NoError(t, err)
	select {
	case payload := <-called:
		require.Equal(t, []byte{2, 1}, payload)
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, fromSlaves(frames()))
}

func TestLED(t *testing.T) {
	env := newSlaveTestEnv(t)
	leds := make(chan protocol.LED, 1)
	env.slave(5, 1, func(s *Slave) {
		s.LED = func(led protocol.LED) { leds <- led }
	})
	led := protocol.LED{State: protocol.LEDOn, Color: protocol.LEDRed}
	require.NoError(t, env.master.SetLED(env.ctx, 5, led))
	select {
	case got := <-leds:
		require.Equal(t, led, got)
	case <-time.After(time.Second):
		t.Fatal("LED not set")
	}
}

func TestReadRegister(t *testing.T) {
	env := newSlaveTestEnv(t)
	env.slave(5, 1, func(s *Slave) {
		s.Registers = RegisterProviderFunc(func(addr uint32) (uint32, error) {
			return addr * 2, nil
		})
	})
	env.slave(6, 2, nil)
	v, err := env.master.ReadRegister(env.ctx, 5, 21)
	require.NoError(t, err)
	require.Equal(t, uint32(42), v)

	_, err = env.master.ReadRegister(env.ctx, 6, 21)
	require.True(t, master.IsNack(err))
}

func TestEventQueuePostNeverBlocks(t *testing.T) {
	q := NewEventQueue(2)
	require.NoError(t, q.Post(protocol.EventDigitalInterrupt, []byte{1}))
	require.NoError(t, q.Post(protocol.EventDigitalInterrupt, []byte{2}))
	require.Equal(t, ErrEventQueueFull, q.Post(protocol.EventDigitalInterrupt, []byte{3}))
	require.Equal(t, 2, q.Len())
	require.Equal(t, uint64(1), q.Dropped())
	q.Flush()
	require.Equal(t, 0, q.Len())
}

func TestEventsDeliveredInOrder(t *testing.T) {
	env := newSlaveTestEnv(t)
	s := env.slave(5, 1, nil)

	var lock sync.Mutex
	var got []byte
	env.master.Subscribe(protocol.EventDigitalInterrupt, 5, func(ev master.Event) {
		lock.Lock()
		got = append(got, ev.Payload[0])
		lock.Unlock()
	})
	for n := 0; n < 10; n++ {
		require.NoError(t, s.SendEvent(protocol.EventDigitalInterrupt, []byte{byte(n)}))
	}
	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(got) == 10
	}, time.Second, time.Millisecond)
	for n, v := range got {
		require.Equal(t, byte(n), v)
	}
}

func TestEventDuringPendingRequest(t *testing.T) {
	env := newSlaveTestEnv(t)
	var s *Slave
	s = env.slave(5, 1, func(sl *Slave) {
		sl.RegisterHandlerFunc(protocol.ReqDigitalRead, func(ctx context.Context, payload []byte) ([]byte, error) {
			sl.SendEvent(protocol.EventDigitalInterrupt, []byte{1})
			return []byte{0}, nil
		})
	})
	require.NotNil(t, s)
	events := make(chan master.Event, 1)
	env.master.Subscribe(protocol.EventDigitalInterrupt, 5, func(ev master.Event) { events <- ev })

	resp, err := env.master.Call(env.ctx, 5, protocol.ReqDigitalRead, []byte{1})
	require.NoError(t, err)
	require.Equal(t, []byte{0}, resp)
	select {
	case ev := <-events:
		require.Equal(t, []byte{1}, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
