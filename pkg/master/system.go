package master

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/iobus/pkg/directory"
	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/protocol"
)

// DefaultDiscoverWindow is how long Discover collects answers.
const DefaultDiscoverWindow = 200 * time.Millisecond

// collect broadcasts a command and feeds every answer with the same
// opcode to fn until fn returns true or window elapses.
func (m *Master) collect(ctx context.Context, opcode byte, payload []byte, window time.Duration, fn func(*frame.Frame) bool) error {
	if atomic.LoadInt32(&m.running) == 0 {
		return ErrNotRunning
	}
	b, err := frame.Encode(opcode, frame.Header{Dir: frame.MasterToSlave, Ack: true}, payload)
	if err != nil {
		return err
	}
	if err = m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	ch := make(chan *frame.Frame, 64)
	m.setCollector(opcode, ch)
	defer m.setCollector(0, nil)
	if err = m.send(ctx, b); err != nil {
		return err
	}
	timer := time.NewTimer(window)
	defer timer.Stop()
	for {
		select {
		case f := <-ch:
			if fn(f) {
				return nil
			}
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Ping finds the logical id of the module with the given type and serial
// number.
func (m *Master) Ping(ctx context.Context, typ uint16, serial uint32, opts ...RequestOption) (uint16, error) {
	o := m.Options
	for _, opt := range opts {
		opt(&o)
	}
	payload := protocol.Announce{Type: typ, Serial: serial}.Bytes()
	attempts := o.MaxRetries + 1
	for n := 0; n < attempts; n++ {
		var id uint16
		found := false
		err := m.collect(ctx, protocol.OpPing, payload, o.Timeout, func(f *frame.Frame) bool {
			id, found = f.ID, true
			return true
		})
		if err != nil {
			return 0, err
		}
		if found {
			return id, nil
		}
		if n+1 < attempts {
			atomic.AddUint64(&m.stats.Retries, 1)
		}
	}
	atomic.AddUint64(&m.stats.Timeouts, 1)
	return 0, &TimeoutError{Opcode: protocol.OpPing, Attempts: attempts}
}

// Discover enumerates the bus. Every module answers with its type and
// serial number; the Directory is rebuilt from the answers.
func (m *Master) Discover(ctx context.Context, window time.Duration) ([]directory.Identity, error) {
	if window <= 0 {
		window = DefaultDiscoverWindow
	}
	found := directory.New()
	err := m.collect(ctx, protocol.OpDiscover, nil, window, func(f *frame.Frame) bool {
		ann, err := protocol.ParseAnnounce(f.Payload)
		if err != nil {
			glog.Warningf("discover: bad answer from module %d: %v", f.ID, err)
			return false
		}
		ident := directory.Identity{ID: f.ID, Type: ann.Type, Serial: ann.Serial}
		if err = found.Register(ident); err != nil {
			glog.Warningf("discover: %v: %v", ident, err)
			return false
		}
		glog.V(1).Infof("discover: found %v", ident)
		return false
	})
	if err != nil {
		return nil, err
	}
	m.directory.Reset()
	list := found.All()
	for _, ident := range list {
		m.directory.Register(ident)
	}
	return list, nil
}

// BoardInfo queries a module's board information and records it in the
// Directory.
func (m *Master) BoardInfo(ctx context.Context, moduleID uint16, opts ...RequestOption) (protocol.BoardInfo, error) {
	resp, err := m.Request(ctx, moduleID, protocol.OpBoardInfo, nil, opts...)
	if err != nil {
		return protocol.BoardInfo{}, err
	}
	info, err := protocol.ParseBoardInfo(resp)
	if err != nil {
		return info, err
	}
	ident, _ := m.directory.Lookup(moduleID)
	ident.ID, ident.Type, ident.Serial = moduleID, info.Type, info.Serial
	ident.Firmware = info.SoftwareVersion
	m.directory.Register(ident)
	return info, nil
}

// SetLED changes the status LED of a module.
func (m *Master) SetLED(ctx context.Context, moduleID uint16, led protocol.LED) error {
	_, err := m.Request(ctx, moduleID, protocol.OpLEDStatus, led.Bytes(), WithoutAck())
	return err
}

// Restart asks a module (or every module with the broadcast id) to reset
// to its power-on state.
func (m *Master) Restart(ctx context.Context, moduleID uint16) error {
	_, err := m.Request(ctx, moduleID, protocol.OpRestart, nil, WithoutAck())
	return err
}

// ReadRegister reads a 32-bit diagnostic register of a module.
func (m *Master) ReadRegister(ctx context.Context, moduleID uint16, addr uint32, opts ...RequestOption) (uint32, error) {
	resp, err := m.Request(ctx, moduleID, protocol.OpReadRegister, frame.NewWriter().Uint32(addr).Bytes(), opts...)
	if err != nil {
		return 0, err
	}
	r := frame.NewReader(resp)
	v := r.Uint32()
	return v, r.Err()
}

// Call sends a module request: opcode REQUEST with the sub-opcode as the
// first payload byte.
func (m *Master) Call(ctx context.Context, moduleID uint16, req byte, args []byte, opts ...RequestOption) ([]byte, error) {
	payload := make([]byte, 0, 1+len(args))
	payload = append(append(payload, req), args...)
	return m.Request(ctx, moduleID, protocol.OpRequest, payload, opts...)
}
