package frame

import (
	"encoding/binary"
	"math"
)

// PutUint16 stores v little-endian.
func PutUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

// GetUint16 loads a little-endian uint16.
func GetUint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// PutUint32 stores v little-endian.
func PutUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// GetUint32 loads a little-endian uint32.
func GetUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// PutFloat32 stores the IEEE-754 bits of v little-endian.
func PutFloat32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }

// GetFloat32 loads a little-endian IEEE-754 float32.
func GetFloat32(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }

// Writer builds a payload.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer starting with the given bytes.
func NewWriter(prefix ...byte) *Writer {
	return &Writer{buf: append([]byte(nil), prefix...)}
}

// Byte appends a byte.
func (w *Writer) Byte(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// Bool appends 1 or 0.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Byte(1)
	}
	return w.Byte(0)
}

// Uint16 appends v little-endian.
func (w *Writer) Uint16(v uint16) *Writer {
	w.buf = append(w.buf, byte(v), byte(v>>8))
	return w
}

// Uint32 appends v little-endian.
func (w *Writer) Uint32(v uint32) *Writer {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	return w
}

// Int32 appends v little-endian.
func (w *Writer) Int32(v int32) *Writer {
	return w.Uint32(uint32(v))
}

// Int64 appends v little-endian.
func (w *Writer) Int64(v int64) *Writer {
	w.Uint32(uint32(v))
	return w.Uint32(uint32(uint64(v) >> 32))
}

// Float32 appends v as little-endian IEEE-754.
func (w *Writer) Float32(v float32) *Writer {
	return w.Uint32(math.Float32bits(v))
}

// Raw appends bytes as-is.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// String appends a length-prefixed string, truncated to 255 bytes.
func (w *Writer) String(s string) *Writer {
	if len(s) > 0xff {
		s = s[:0xff]
	}
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Bytes returns the payload.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader reads fields from a payload. The first read beyond the end
// sets Err and every later read returns zero values.
type Reader struct {
	buf []byte
	err error
}

// NewReader creates a Reader.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = ErrShortPayload
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

// Byte reads a byte.
func (r *Reader) Byte() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

// Bool reads a byte as bool.
func (r *Reader) Bool() bool {
	return r.Byte() != 0
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() uint16 {
	if b := r.take(2); b != nil {
		return GetUint16(b)
	}
	return 0
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() uint32 {
	if b := r.take(4); b != nil {
		return GetUint32(b)
	}
	return 0
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64() int64 {
	lo := uint64(r.Uint32())
	hi := uint64(r.Uint32())
	return int64(hi<<32 | lo)
}

// Float32 reads a little-endian IEEE-754 float32.
func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

// String reads a length-prefixed string.
func (r *Reader) String() string {
	n := int(r.Byte())
	if b := r.take(n); b != nil {
		return string(b)
	}
	return ""
}

// Rest returns the unread bytes.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.buf
	r.buf = nil
	return b
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf)
}

// Err returns the first error.
func (r *Reader) Err() error {
	return r.err
}
