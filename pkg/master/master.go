// Package master implements the bus master: the request engine, the
// master side of the event channel and bus enumeration.
package master

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/iobus/pkg/directory"
	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/transport"
)

// Stats are counters of a Master.
type Stats struct {
	Sent     uint64
	Retries  uint64
	Timeouts uint64
	Nacks    uint64
	Dropped  uint64
	Events   uint64
}

// Master owns one bus. Requests are strictly sequential: a caller blocks
// until the bus is free, and at most one request waits for an answer.
type Master struct {
	// stats is first to keep 64-bit atomics aligned on 32-bit platforms.
	stats Stats

	// Options are the defaults applied to every request.
	Options Options
	// PollInterval is the receive timeout of Run and paces housekeeping.
	PollInterval time.Duration
	// IdleWarn logs a warning once the bus has been silent this long.
	// Zero disables it.
	IdleWarn time.Duration

	transport transport.Transport
	directory *directory.Directory
	events    *events
	bus       chan struct{}
	running   int32

	lock      sync.Mutex
	pending   *pendingRequest
	collector chan *frame.Frame
	collectOp byte

	lastFrame time.Time
	idle      bool
}

type pendingRequest struct {
	moduleID uint16
	opcode   byte
	resultCh chan *frame.Frame
}

// New creates a Master on a transport.
func New(t transport.Transport) *Master {
	return &Master{
		Options: Options{
			Timeout:    DefaultTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		PollInterval: DefaultPollInterval,
		transport:    t,
		directory:    directory.New(),
		events:       newEvents(),
		bus:          make(chan struct{}, 1),
	}
}

// Directory returns the module directory filled by enumeration.
func (m *Master) Directory() *directory.Directory {
	return m.directory
}

// Stats returns a snapshot of the counters.
func (m *Master) Stats() Stats {
	return Stats{
		Sent:     atomic.LoadUint64(&m.stats.Sent),
		Retries:  atomic.LoadUint64(&m.stats.Retries),
		Timeouts: atomic.LoadUint64(&m.stats.Timeouts),
		Nacks:    atomic.LoadUint64(&m.stats.Nacks),
		Dropped:  atomic.LoadUint64(&m.stats.Dropped),
		Events:   atomic.LoadUint64(&m.stats.Events),
	}
}

// Subscribe installs the callback for events of eventType from moduleID,
// replacing any previous one for the same pair.
func (m *Master) Subscribe(eventType byte, moduleID uint16, cb EventCallback) {
	m.events.subscribe(eventType, moduleID, cb)
}

// Unsubscribe removes the callback for eventType from moduleID.
func (m *Master) Unsubscribe(eventType byte, moduleID uint16) {
	m.events.unsubscribe(eventType, moduleID)
}

// Request sends a command to a module and waits for its answer.
// Broadcast requests and requests sent WithoutAck return right after
// transmission. A module rejecting the command yields *NackError at once;
// silence is retried and ends with *TimeoutError.
func (m *Master) Request(ctx context.Context, moduleID uint16, opcode byte, payload []byte, opts ...RequestOption) ([]byte, error) {
	o := m.Options
	for _, opt := range opts {
		opt(&o)
	}
	if moduleID > frame.MaxID {
		return nil, ErrInvalidID
	}
	if atomic.LoadInt32(&m.running) == 0 {
		return nil, ErrNotRunning
	}
	hdr := frame.Header{ID: moduleID, Dir: frame.MasterToSlave}
	hdr.Ack = !o.NoAck && moduleID != frame.BroadcastID
	b, err := frame.Encode(opcode, hdr, payload)
	if err != nil {
		return nil, err
	}

	if err = m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	if !hdr.Ack {
		return nil, m.send(ctx, b)
	}

	p := &pendingRequest{moduleID: moduleID, opcode: opcode, resultCh: make(chan *frame.Frame, 1)}
	m.setPending(p)
	defer m.setPending(nil)

	attempts := o.MaxRetries + 1
	for n := 0; n < attempts; n++ {
		if n > 0 {
			atomic.AddUint64(&m.stats.Retries, 1)
			glog.V(2).Infof("module %d: retry %s (%d/%d)", moduleID, protocol.OpName(opcode), n, o.MaxRetries)
		}
		if err = m.send(ctx, b); err != nil {
			return nil, err
		}
		f, err := m.await(ctx, p.resultCh, o.Timeout)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		if f.Error {
			atomic.AddUint64(&m.stats.Nacks, 1)
			return nil, &NackError{ModuleID: moduleID, Opcode: opcode, Payload: f.Payload}
		}
		return f.Payload, nil
	}
	atomic.AddUint64(&m.stats.Timeouts, 1)
	return nil, &TimeoutError{ModuleID: moduleID, Opcode: opcode, Attempts: attempts}
}

// await returns (nil, nil) on timeout.
func (m *Master) await(ctx context.Context, ch <-chan *frame.Frame, timeout time.Duration) (*frame.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-ch:
		return f, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run receives frames and routes answers and events until ctx is done
// or the transport fails. Requests need Run to be active.
func (m *Master) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		panic("master: Run called twice")
	}
	defer atomic.StoreInt32(&m.running, 0)

	evCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go m.events.run(evCtx)

	interval := m.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	m.lastFrame = time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := m.transport.Receive(interval)
		if err != nil {
			if transport.IsTimeout(err) {
				m.housekeeping()
				continue
			}
			glog.Errorf("master: receive error: %v", err)
			return err
		}
		f, _, err := frame.Decode(b)
		if err != nil {
			atomic.AddUint64(&m.stats.Dropped, 1)
			glog.Warningf("master: bad frame dropped: %v", err)
			continue
		}
		m.lastFrame, m.idle = time.Now(), false
		m.route(f)
	}
}

func (m *Master) route(f *frame.Frame) {
	glog.V(3).Infof("master: RCV %s", f)
	if f.Dir == frame.MasterToSlave {
		// our own transmission echoed back on a half-duplex line.
		return
	}
	if f.Opcode == protocol.OpEvent {
		if len(f.Payload) == 0 {
			atomic.AddUint64(&m.stats.Dropped, 1)
			return
		}
		atomic.AddUint64(&m.stats.Events, 1)
		m.events.post(Event{Type: f.Payload[0], ModuleID: f.ID, Payload: f.Payload[1:]})
		return
	}

	m.lock.Lock()
	collector, collectOp, p := m.collector, m.collectOp, m.pending
	m.lock.Unlock()

	if collector != nil && f.Opcode == collectOp {
		select {
		case collector <- f:
		default:
			atomic.AddUint64(&m.stats.Dropped, 1)
		}
		return
	}
	if p != nil && p.opcode == f.Opcode && p.moduleID == f.ID {
		select {
		case p.resultCh <- f:
		default:
			// a duplicate answer from a retransmission.
		}
		return
	}
	atomic.AddUint64(&m.stats.Dropped, 1)
	glog.V(2).Infof("master: unmatched frame dropped: %s", f)
}

func (m *Master) housekeeping() {
	if m.IdleWarn <= 0 || m.idle {
		return
	}
	if silent := time.Since(m.lastFrame); silent >= m.IdleWarn {
		m.idle = true
		glog.Warningf("master: bus silent for %v", silent.Truncate(time.Millisecond))
	}
}

func (m *Master) acquire(ctx context.Context) error {
	select {
	case m.bus <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Master) release() {
	<-m.bus
}

func (m *Master) send(ctx context.Context, b []byte) error {
	if glog.V(3) {
		if f, _, err := frame.Decode(b); err == nil {
			glog.Infof("master: SND %s", f)
		}
	}
	if err := m.transport.Send(ctx, b); err != nil {
		return err
	}
	atomic.AddUint64(&m.stats.Sent, 1)
	return nil
}

func (m *Master) setPending(p *pendingRequest) {
	m.lock.Lock()
	m.pending = p
	m.lock.Unlock()
}

func (m *Master) setCollector(op byte, ch chan *frame.Frame) {
	m.lock.Lock()
	m.collector, m.collectOp = ch, op
	m.lock.Unlock()
}
