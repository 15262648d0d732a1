// Package slcan carries bus frames over a CAN bus through a serial-line
// CAN adapter speaking the SLCAN (Lawicel) ASCII protocol.
package slcan

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/transport"
	"github.com/robotalks/iobus/pkg/transport/serial"
)

// Bitrate setup commands, indexed by kbit/s.
var bitrates = map[int]string{
	10: "S0", 20: "S1", 50: "S2", 100: "S3", 125: "S4",
	250: "S5", 500: "S6", 800: "S7", 1000: "S8",
}

// FormatFrame encodes a CAN frame as an SLCAN extended data frame line.
func FormatFrame(c frame.CANFrame) ([]byte, error) {
	if c.Len > 8 {
		return nil, fmt.Errorf("invalid DLC %d", c.Len)
	}
	line := make([]byte, 0, 1+8+1+16+1)
	line = append(line, 'T')
	line = append(line, fmt.Sprintf("%08X%d", c.ID&0x1fffffff, c.Len)...)
	line = append(line, bytes.ToUpper([]byte(hex.EncodeToString(c.Data[:c.Len])))...)
	return append(line, '\r'), nil
}

// ParseFrame decodes an SLCAN data frame line (without the trailing '\r').
// Both standard ('t') and extended ('T') frames are accepted.
func ParseFrame(line []byte) (c frame.CANFrame, err error) {
	var idLen int
	switch {
	case len(line) > 0 && line[0] == 't':
		idLen = 3
	case len(line) > 0 && line[0] == 'T':
		idLen = 8
	default:
		return c, fmt.Errorf("not a data frame: %q", line)
	}
	if len(line) < 1+idLen+1 {
		return c, fmt.Errorf("short frame: %q", line)
	}
	id, err := strconv.ParseUint(string(line[1:1+idLen]), 16, 32)
	if err != nil {
		return c, fmt.Errorf("bad id: %w", err)
	}
	dlc := line[1+idLen] - '0'
	if dlc > 8 {
		return c, fmt.Errorf("invalid DLC in %q", line)
	}
	data := line[2+idLen:]
	if len(data) != int(dlc)*2 {
		return c, fmt.Errorf("data length mismatch in %q", line)
	}
	if _, err = hex.Decode(c.Data[:dlc], data); err != nil {
		return c, fmt.Errorf("bad data: %w", err)
	}
	c.ID, c.Len = uint32(id), dlc
	return c, nil
}

// Transport implements transport.Transport over an SLCAN adapter.
type Transport struct {
	rw       io.ReadWriter
	frames   chan frame.CANFrame
	readErr  error
	sendLock sync.Mutex
}

// New wraps an opened adapter stream and starts reading.
func New(rw io.ReadWriter) *Transport {
	t := &Transport{rw: rw, frames: make(chan frame.CANFrame, 32)}
	go t.readLoop()
	return t
}

// Open opens the adapter on a serial port and starts the CAN channel.
func Open(cfg *serial.Config, kbps int) (*Transport, error) {
	setup, ok := bitrates[kbps]
	if !ok {
		return nil, fmt.Errorf("unsupported CAN bitrate %d kbit/s", kbps)
	}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	for _, cmd := range []string{"C", setup, "O"} {
		if _, err = port.Write([]byte(cmd + "\r")); err != nil {
			port.Close()
			return nil, fmt.Errorf("slcan setup %q: %w", cmd, err)
		}
	}
	return New(port), nil
}

// Send implements Transport.
func (t *Transport) Send(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, _, err := frame.Decode(b)
	if err != nil {
		return err
	}
	c, err := frame.ToCAN(f)
	if err != nil {
		return err
	}
	line, err := FormatFrame(c)
	if err != nil {
		return err
	}
	t.sendLock.Lock()
	defer t.sendLock.Unlock()
	_, err = t.rw.Write(line)
	return err
}

// Receive implements Transport.
func (t *Transport) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case c, ok := <-t.frames:
			if !ok {
				if t.readErr != nil {
					return nil, t.readErr
				}
				return nil, transport.ErrClosed
			}
			f, err := frame.FromCAN(c)
			if err != nil {
				glog.V(2).Infof("slcan: %v", err)
				continue
			}
			return f.Bytes()
		case <-timer.C:
			return nil, transport.ErrTimeout
		}
	}
}

// Close closes the CAN channel and the adapter.
func (t *Transport) Close() error {
	t.sendLock.Lock()
	t.rw.Write([]byte("C\r"))
	t.sendLock.Unlock()
	if closer, ok := t.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (t *Transport) readLoop() {
	defer close(t.frames)
	scanner := bufio.NewScanner(t.rw)
	scanner.Split(splitCR)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || (line[0] != 't' && line[0] != 'T') {
			// acks ('z', 'Z') and empty lines.
			continue
		}
		c, err := ParseFrame(line)
		if err != nil {
			glog.Warningf("slcan: %v", err)
			continue
		}
		t.frames <- c
	}
	t.readErr = scanner.Err()
}

// splitCR splits on '\r', dropping bell (0x07) error replies.
func splitCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		switch b {
		case '\r':
			return i + 1, data[:i], nil
		case 0x07:
			return i + 1, nil, nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
