package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// LinkTypeIOBus is the pcap link type used for captured frames (DLT_USER0).
const LinkTypeIOBus = layers.LinkType(147)

// Capture wraps a Transport and records every frame sent or received
// into a pcap stream.
type Capture struct {
	Transport

	w    *pcapgo.Writer
	lock sync.Mutex
}

// NewCapture writes the pcap file header to w and wraps t.
func NewCapture(t Transport, w io.Writer) (*Capture, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65535, LinkTypeIOBus); err != nil {
		return nil, err
	}
	return &Capture{Transport: t, w: pw}, nil
}

// Send implements Transport.
func (c *Capture) Send(ctx context.Context, b []byte) error {
	if err := c.Transport.Send(ctx, b); err != nil {
		return err
	}
	return c.record(b)
}

// Receive implements Transport.
func (c *Capture) Receive(timeout time.Duration) ([]byte, error) {
	b, err := c.Transport.Receive(timeout)
	if err != nil {
		return b, err
	}
	return b, c.record(b)
}

// Close closes the wrapped Transport.
func (c *Capture) Close() error {
	return Close(c.Transport)
}

func (c *Capture) record(b []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(b),
		Length:        len(b),
	}, b)
}

// CaptureRecord is one frame read back from a capture.
type CaptureRecord struct {
	Time time.Time
	Data []byte
}

// ReadCapture reads all records from a pcap stream written by Capture.
func ReadCapture(r io.Reader) ([]CaptureRecord, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, err
	}
	var records []CaptureRecord
	for {
		data, ci, err := pr.ReadPacketData()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, CaptureRecord{Time: ci.Timestamp, Data: data})
	}
}
