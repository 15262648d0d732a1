package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/iobus/pkg/frame"
)

// DefaultInterByteTimeout drops a partial frame when the line goes silent.
const DefaultInterByteTimeout = 20 * time.Millisecond

// Stream implements Transport over a byte stream such as a serial port
// or a TCP connection. Frames are reassembled with frame.Parser.
type Stream struct {
	InterByteTimeout time.Duration

	rw        io.ReadWriter
	parser    frame.Parser
	chunks    chan []byte
	readErr   error
	sendLock  sync.Mutex
	closeOnce sync.Once
}

// NewStream creates a Stream and starts reading from rw.
// A Read returning (0, nil) is treated as a read timeout.
func NewStream(rw io.ReadWriter) *Stream {
	s := &Stream{
		InterByteTimeout: DefaultInterByteTimeout,
		rw:               rw,
		chunks:           make(chan []byte, 16),
	}
	go s.readLoop()
	return s
}

// Send implements Transport.
func (s *Stream) Send(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sendLock.Lock()
	defer s.sendLock.Unlock()
	_, err := s.rw.Write(b)
	return err
}

// Receive implements Transport.
func (s *Stream) Receive(timeout time.Duration) ([]byte, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		raw, err := s.parser.NextRaw()
		if err != nil {
			glog.V(2).Infof("stream: %v", err)
			continue
		}
		if raw != nil {
			return raw, nil
		}
		var idle <-chan time.Time
		if s.parser.Buffered() > 0 && s.InterByteTimeout > 0 {
			idle = time.After(s.InterByteTimeout)
		}
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				if s.readErr != nil {
					return nil, s.readErr
				}
				return nil, ErrClosed
			}
			s.parser.Write(chunk)
		case <-idle:
			glog.Warningf("stream: line idle, %d byte(s) of partial frame dropped", s.parser.Reset())
		case <-deadline.C:
			return nil, ErrTimeout
		}
	}
}

// Close implements io.Closer.
func (s *Stream) Close() (err error) {
	s.closeOnce.Do(func() {
		if closer, ok := s.rw.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return
}

func (s *Stream) readLoop() {
	defer close(s.chunks)
	buf := make([]byte, 256)
	for {
		n, err := s.rw.Read(buf)
		if n > 0 {
			s.chunks <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}
