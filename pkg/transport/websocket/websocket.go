// Package websocket carries bus frames over a websocket, one frame per
// binary message.
package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/iobus/pkg/transport"
)

// Transport implements transport.Transport over a websocket connection.
type Transport struct {
	conn    *websocket.Conn
	frames  chan []byte
	readErr error
	done    chan struct{}
}

// New wraps an established connection and starts reading.
func New(conn *websocket.Conn) *Transport {
	t := &Transport{
		conn:   conn,
		frames: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	conn.PayloadType = websocket.BinaryFrame
	go t.readLoop()
	return t
}

// Dial connects to a websocket gateway, e.g. ws://host:8080/bus.
func Dial(url string) (*Transport, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Handler creates an http.Handler serving each accepted connection with fn.
// The connection stays open until fn returns.
func Handler(fn func(*Transport)) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		t := New(conn)
		defer t.Close()
		glog.V(1).Infof("websocket: %s connected", conn.Request().RemoteAddr)
		fn(t)
	})
}

// Send implements Transport.
func (t *Transport) Send(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return websocket.Message.Send(t.conn, b)
}

// Receive implements Transport.
func (t *Transport) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b, ok := <-t.frames:
		if !ok {
			if t.readErr != nil {
				return nil, t.readErr
			}
			return nil, transport.ErrClosed
		}
		return b, nil
	case <-timer.C:
		return nil, transport.ErrTimeout
	}
}

// Done is closed when the connection is gone.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Close implements io.Closer.
func (t *Transport) Close() error {
	return t.conn.Close()
}

func (t *Transport) readLoop() {
	defer close(t.done)
	defer close(t.frames)
	for {
		var b []byte
		if err := websocket.Message.Receive(t.conn, &b); err != nil {
			t.readErr = err
			return
		}
		t.frames <- b
	}
}
