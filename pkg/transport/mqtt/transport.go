package mqtt

import (
	"context"
	"sync"
	"time"

	"github.com/robotalks/iobus/pkg/transport"
)

// Transport carries encoded frames over a pair of MQTT topics.
type Transport struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	frames chan []byte
	sub    *Subscription
	once   sync.Once
}

// NewTransport subscribes SubTopic and publishes to PubTopic.
func NewTransport(q *Queue, sub, pub string) *Transport {
	t := &Transport{
		Queue:    q,
		SubTopic: sub,
		PubTopic: pub,
		frames:   make(chan []byte, 16),
	}
	t.sub = q.Sub(sub, t.handleMsg)
	return t
}

// ForMaster uses the topic convention of a remote master:
// it publishes bus/NAME/down and receives bus/NAME/up.
func ForMaster(q *Queue, name string) *Transport {
	return NewTransport(q, "bus/"+name+"/up", "bus/"+name+"/down")
}

// ForGateway uses the topic convention of the side attached to the wire.
func ForGateway(q *Queue, name string) *Transport {
	return NewTransport(q, "bus/"+name+"/down", "bus/"+name+"/up")
}

// Send implements Transport.
func (t *Transport) Send(ctx context.Context, b []byte) error {
	token := t.Queue.Pub(t.PubTopic, b)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-waitToken(token):
		return token.Error()
	}
}

// Receive implements Transport.
func (t *Transport) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b, ok := <-t.frames:
		if !ok {
			return nil, transport.ErrClosed
		}
		return b, nil
	case <-timer.C:
		return nil, transport.ErrTimeout
	}
}

// Close unsubscribes. The Queue is left connected.
func (t *Transport) Close() (err error) {
	t.once.Do(func() {
		err = t.sub.Close()
	})
	return
}

func (t *Transport) handleMsg(_ string, payload []byte) {
	select {
	case t.frames <- append([]byte(nil), payload...):
	default:
		// the reader is gone or stalled; MQTT delivery must not block.
	}
}

func waitToken(token interface{ Wait() bool }) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		token.Wait()
		close(ch)
	}()
	return ch
}
