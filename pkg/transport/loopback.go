package transport

import (
	"context"
	"sync"
	"time"
)

// Loopback is an in-memory shared bus. Every frame sent by one endpoint
// is delivered to all other attached endpoints, like a multi-drop line.
type Loopback struct {
	lock      sync.RWMutex
	endpoints []*Endpoint
}

// Endpoint is a Transport attached to a Loopback.
type Endpoint struct {
	bus    *Loopback
	inbox  chan []byte
	closed chan struct{}
	once   sync.Once
}

// NewLoopback creates an empty Loopback bus.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// NewPipe creates two connected endpoints.
func NewPipe() (*Endpoint, *Endpoint) {
	bus := NewLoopback()
	return bus.Attach(), bus.Attach()
}

// Attach adds an endpoint.
func (l *Loopback) Attach() *Endpoint {
	ep := &Endpoint{
		bus:    l,
		inbox:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	l.lock.Lock()
	l.endpoints = append(l.endpoints, ep)
	l.lock.Unlock()
	return ep
}

func (l *Loopback) detach(ep *Endpoint) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for n, e := range l.endpoints {
		if e == ep {
			l.endpoints = append(l.endpoints[:n], l.endpoints[n+1:]...)
			return
		}
	}
}

// Send implements Transport.
func (e *Endpoint) Send(ctx context.Context, b []byte) error {
	select {
	case <-e.closed:
		return ErrClosed
	default:
	}
	e.bus.lock.RLock()
	peers := make([]*Endpoint, 0, len(e.bus.endpoints))
	for _, ep := range e.bus.endpoints {
		if ep != e {
			peers = append(peers, ep)
		}
	}
	e.bus.lock.RUnlock()
	for _, ep := range peers {
		select {
		case ep.inbox <- append([]byte(nil), b...):
		case <-ep.closed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Receive implements Transport.
func (e *Endpoint) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b := <-e.inbox:
		return b, nil
	case <-e.closed:
		return nil, ErrClosed
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Close implements io.Closer.
func (e *Endpoint) Close() error {
	e.once.Do(func() {
		close(e.closed)
		e.bus.detach(e)
	})
	return nil
}
