package transport

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/iobus/pkg/frame"
)

type chanReadWriter struct {
	readCh  chan []byte
	writeCh chan []byte
}

func newChanReadWriter() *chanReadWriter {
	return &chanReadWriter{
		readCh:  make(chan []byte, 16),
		writeCh: make(chan []byte, 16),
	}
}

func (c *chanReadWriter) Read(p []byte) (int, error) {
	b, ok := <-c.readCh
	if !ok {
		return 0, os.ErrClosed
	}
	return copy(p, b), nil
}

func (c *chanReadWriter) Write(p []byte) (int, error) {
	c.writeCh <- append([]byte(nil), p...)
	return len(p), nil
}

func encode(t *testing.T, op byte, h frame.Header, payload ...byte) []byte {
	b, err := frame.Encode(op, h, payload)
	require.NoError(t, err)
	return b
}

func TestStreamReceive(t *testing.T) {
	rw := newChanReadWriter()
	s := NewStream(rw)
	f1 := encode(t, 0x06, frame.Header{ID: 5}, 1)
	f2 := encode(t, 0x07, frame.Header{ID: 5}, 0, 3)

	rw.readCh <- []byte{0x55}
	rw.readCh <- f1[:3]
	rw.readCh <- append(f1[3:], f2[:2]...)
	rw.readCh <- f2[2:]

	b, err := s.Receive(time.Second)
	require.NoError(t, err)
	require.Equal(t, f1, b)
	b, err = s.Receive(time.Second)
	require.NoError(t, err)
	require.Equal(t, f2, b)

	_, err = s.Receive(10 * time.Millisecond)
	require.Equal(t, ErrTimeout, err)
	require.True(t, IsTimeout(err))
	require.True(t, os.IsTimeout(err))

	close(rw.readCh)
	_, err = s.Receive(time.Second)
	require.Equal(t, os.ErrClosed, err)
}

func TestStreamInterByteTimeout(t *testing.T) {
	rw := newChanReadWriter()
	s := NewStream(rw)
	s.InterByteTimeout = 5 * time.Millisecond
	f := encode(t, 0x02, frame.Header{ID: 1}, 1, 2, 3)

	rw.readCh <- f[:5]
	_, err := s.Receive(50 * time.Millisecond)
	require.Equal(t, ErrTimeout, err)
	rw.readCh <- f
	b, err := s.Receive(time.Second)
	require.NoError(t, err)
	require.Equal(t, f, b)
}

func TestStreamSend(t *testing.T) {
	rw := newChanReadWriter()
	s := NewStream(rw)
	f := encode(t, 0x02, frame.Header{ID: 1})
	require.NoError(t, s.Send(context.Background(), f))
	require.Equal(t, f, <-rw.writeCh)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, s.Send(ctx, f))
}
