package frame

// Parser reassembles frames from a byte stream.
// Bytes are appended with Write and frames are pulled with Next.
type Parser struct {
	buf []byte
}

// Write appends received bytes. It never fails.
func (p *Parser) Write(b []byte) (int, error) {
	p.buf = append(p.buf, b...)
	return len(b), nil
}

// Buffered returns the number of bytes waiting for a complete frame.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// Next returns the next frame in the buffer.
// It returns (nil, nil) when more bytes are needed. A non-nil error
// reports dropped bytes, the parser has already resynchronized and
// Next should be called again.
func (p *Parser) Next() (*Frame, error) {
	f, _, err := p.next(false)
	return f, err
}

// NextRaw is like Next but returns the encoded bytes of the frame.
func (p *Parser) NextRaw() ([]byte, error) {
	_, raw, err := p.next(true)
	return raw, err
}

func (p *Parser) next(keepRaw bool) (f *Frame, raw []byte, err error) {
	f, n, err := Decode(p.buf)
	if f != nil && keepRaw {
		raw = append([]byte(nil), p.buf[:n]...)
	}
	if n > 0 {
		p.buf = append(p.buf[:0], p.buf[n:]...)
	}
	if err == ErrTruncated {
		err = nil
	}
	return
}

// Reset drops a partially received frame, e.g. when the line has been
// silent longer than an inter-byte timeout.
func (p *Parser) Reset() (dropped int) {
	dropped = len(p.buf)
	p.buf = p.buf[:0]
	return
}
