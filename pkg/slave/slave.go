// Package slave implements the module side of the bus: the dispatch loop
// executing commands from the master, the system command handlers and the
// event channel towards the master.
package slave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/registry"
	"github.com/robotalks/iobus/pkg/transport"
)

// DefaultPollInterval is the receive timeout of the dispatch loop.
const DefaultPollInterval = 50 * time.Millisecond

// ErrNoRegisters is the failure of READ_REGISTER on a module without
// register provider.
var ErrNoRegisters = errors.New("no register provider")

// RegisterProvider serves READ_REGISTER.
type RegisterProvider interface {
	ReadRegister(addr uint32) (uint32, error)
}

// RegisterProviderFunc is the func form of RegisterProvider.
type RegisterProviderFunc func(addr uint32) (uint32, error)

// ReadRegister implements RegisterProvider.
func (f RegisterProviderFunc) ReadRegister(addr uint32) (uint32, error) {
	return f(addr)
}

// Slave executes commands addressed to one module.
type Slave struct {
	// DiscoverSlot delays the DISCOVER answer by ID * DiscoverSlot so
	// modules on a shared line answer one after another. The master's
	// discover window must cover the slot of the highest id on the bus.
	DiscoverSlot time.Duration
	// PollInterval is the receive timeout of Run.
	PollInterval time.Duration
	// LED receives LED_STATUS commands. Optional.
	LED func(protocol.LED)
	// Registers serves READ_REGISTER. Optional.
	Registers RegisterProvider

	id        uint16
	info      protocol.BoardInfo
	transport transport.Transport
	commands  *registry.Registry
	requests  *registry.Registry
	events    *EventQueue

	resetLock     sync.Mutex
	resetHandlers []func()

	// pending DISCOVER answer, owned by Run
	announceC <-chan time.Time
}

// New creates a Slave with the logical id and identity of the module.
func New(t transport.Transport, id uint16, info protocol.BoardInfo) *Slave {
	s := &Slave{
		PollInterval: DefaultPollInterval,
		id:           id,
		info:         info,
		transport:    t,
		commands:     registry.New("bus"),
		requests:     registry.New("request"),
		events:       NewEventQueue(DefaultEventQueueSize),
	}
	s.commands.
		MustRegisterFunc(protocol.OpNOP, s.handleNOP).
		MustRegisterFunc(protocol.OpRestart, s.handleRestart).
		MustRegisterFunc(protocol.OpLEDStatus, s.handleLED).
		MustRegisterFunc(protocol.OpBoardInfo, s.handleBoardInfo).
		MustRegisterFunc(protocol.OpReadRegister, s.handleReadRegister).
		MustRegister(protocol.OpRequest, s.requests)
	s.commands.Freeze()
	return s
}

// ID returns the logical id of the module.
func (s *Slave) ID() uint16 {
	return s.id
}

// Info returns the board information of the module.
func (s *Slave) Info() protocol.BoardInfo {
	return s.info
}

// Events returns the event queue. Device code posts events here.
func (s *Slave) Events() *EventQueue {
	return s.events
}

// RegisterHandler installs the handler of a request sub-opcode. It must be
// called before Run.
func (s *Slave) RegisterHandler(req byte, h registry.Handler) error {
	return s.requests.Register(req, h)
}

// RegisterHandlerFunc is RegisterHandler with a func.
func (s *Slave) RegisterHandlerFunc(req byte, fn func(context.Context, []byte) ([]byte, error)) error {
	return s.requests.Register(req, registry.HandlerFunc(fn))
}

// RegisterResetHandler adds fn to the handlers run on RESTART.
func (s *Slave) RegisterResetHandler(fn func()) {
	s.resetLock.Lock()
	s.resetHandlers = append(s.resetHandlers, fn)
	s.resetLock.Unlock()
}

// SendEvent queues an event for the master. It never blocks.
func (s *Slave) SendEvent(eventType byte, payload []byte) error {
	return s.events.Post(eventType, payload)
}

// Reset runs the reset handlers and discards pending events.
func (s *Slave) Reset() {
	s.resetLock.Lock()
	handlers := append([]func(){}, s.resetHandlers...)
	s.resetLock.Unlock()
	for _, fn := range handlers {
		fn()
	}
	s.events.Flush()
}

// Run processes frames and transmits queued events until ctx is done or
// the transport fails. It is the only writer of the transport.
func (s *Slave) Run(ctx context.Context) error {
	s.requests.Freeze()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan []byte)
	errCh := make(chan error, 1)
	go s.receive(ctx, frames, errCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			glog.Errorf("slave %d: receive error: %v", s.id, err)
			return err
		case b := <-frames:
			f, _, err := frame.Decode(b)
			if err != nil {
				glog.Warningf("slave %d: bad frame dropped: %v", s.id, err)
				continue
			}
			if err = s.handle(ctx, f); err != nil {
				return err
			}
		case <-s.announceC:
			s.announceC = nil
			ann := protocol.Announce{Type: s.info.Type, Serial: s.info.Serial}
			if err := s.reply(ctx, protocol.OpDiscover, false, ann.Bytes()); err != nil {
				return err
			}
		case ev := <-s.events.ch:
			payload := make([]byte, 0, 1+len(ev.payload))
			payload = append(append(payload, ev.eventType), ev.payload...)
			if err := s.reply(ctx, protocol.OpEvent, false, payload); err != nil {
				return err
			}
		}
	}
}

func (s *Slave) receive(ctx context.Context, frames chan<- []byte, errCh chan<- error) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for ctx.Err() == nil {
		b, err := s.transport.Receive(interval)
		if err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			errCh <- err
			return
		}
		select {
		case frames <- b:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Slave) handle(ctx context.Context, f *frame.Frame) error {
	if f.Dir != frame.MasterToSlave {
		return nil
	}
	if f.ID != s.id && !f.IsBroadcast() {
		return nil
	}
	glog.V(3).Infof("slave %d: RCV %s", s.id, f)

	switch f.Opcode {
	case protocol.OpPing:
		ann, err := protocol.ParseAnnounce(f.Payload)
		if err != nil || ann.Type != s.info.Type || ann.Serial != s.info.Serial {
			return nil
		}
		return s.reply(ctx, protocol.OpPing, false, nil)
	case protocol.OpDiscover:
		if delay := time.Duration(s.id) * s.DiscoverSlot; delay > 0 {
			// answered from Run when the slot comes, frames and events
			// keep flowing meanwhile
			s.announceC = time.After(delay)
			return nil
		}
		ann := protocol.Announce{Type: s.info.Type, Serial: s.info.Serial}
		return s.reply(ctx, protocol.OpDiscover, false, ann.Bytes())
	}

	resp, err := s.commands.Dispatch(ctx, f.Opcode, append([]byte(nil), f.Payload...))
	if err != nil {
		glog.V(1).Infof("slave %d: %s failed: %v", s.id, protocol.OpName(f.Opcode), err)
	}
	if !f.Ack || f.IsBroadcast() {
		return nil
	}
	if err != nil {
		var fault *registry.Fault
		if errors.As(err, &fault) {
			return s.reply(ctx, f.Opcode, true, []byte{fault.Code})
		}
		return s.reply(ctx, f.Opcode, true, nil)
	}
	return s.reply(ctx, f.Opcode, false, resp)
}

func (s *Slave) reply(ctx context.Context, opcode byte, nack bool, payload []byte) error {
	b, err := frame.Encode(opcode, frame.Header{ID: s.id, Dir: frame.SlaveToMaster, Error: nack}, payload)
	if err != nil {
		glog.Errorf("slave %d: encode %s: %v", s.id, protocol.OpName(opcode), err)
		b, _ = frame.Encode(opcode, frame.Header{ID: s.id, Dir: frame.SlaveToMaster, Error: true}, nil)
	}
	if glog.V(3) {
		if f, _, err := frame.Decode(b); err == nil {
			glog.Infof("slave %d: SND %s", s.id, f)
		}
	}
	if err = s.transport.Send(ctx, b); err != nil && ctx.Err() == nil {
		glog.Errorf("slave %d: send error: %v", s.id, err)
		return err
	}
	return nil
}

func (s *Slave) handleNOP(ctx context.Context, payload []byte) ([]byte, error) {
	return nil, nil
}

func (s *Slave) handleRestart(ctx context.Context, payload []byte) ([]byte, error) {
	glog.Infof("slave %d: restart", s.id)
	s.Reset()
	return nil, nil
}

func (s *Slave) handleLED(ctx context.Context, payload []byte) ([]byte, error) {
	led, err := protocol.ParseLED(payload)
	if err != nil {
		return nil, err
	}
	if s.LED != nil {
		s.LED(led)
	}
	return nil, nil
}

func (s *Slave) handleBoardInfo(ctx context.Context, payload []byte) ([]byte, error) {
	return s.info.Bytes(), nil
}

func (s *Slave) handleReadRegister(ctx context.Context, payload []byte) ([]byte, error) {
	if s.Registers == nil {
		return nil, ErrNoRegisters
	}
	r := frame.NewReader(payload)
	addr := r.Uint32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	v, err := s.Registers.ReadRegister(addr)
	if err != nil {
		return nil, err
	}
	return frame.NewWriter().Uint32(v).Bytes(), nil
}
