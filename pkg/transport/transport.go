// Package transport defines the duplex frame channel used by bus engines
// and provides generic implementations.
package transport

import (
	"context"
	"errors"
	"time"
)

// Transport carries encoded frames. Receive returns exactly one complete
// encoded frame per call. A Transport has a single reader: only the engine
// owning the bus calls Receive.
type Transport interface {
	// Send transmits one encoded frame.
	Send(ctx context.Context, frame []byte) error
	// Receive waits up to timeout for the next frame and returns ErrTimeout
	// when none arrives.
	Receive(timeout time.Duration) ([]byte, error)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "receive timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var (
	// ErrTimeout is returned by Receive when no frame arrives in time.
	// It satisfies os.IsTimeout.
	ErrTimeout error = timeoutError{}
	// ErrClosed indicates the transport is closed.
	ErrClosed = errors.New("transport closed")
)

// IsTimeout reports whether err is a receive timeout.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Close closes t if it implements io.Closer.
func Close(t Transport) error {
	if closer, ok := t.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
