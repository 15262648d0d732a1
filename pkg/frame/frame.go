package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Wire constants.
const (
	Sync       byte = 0xAA
	HeaderSize      = 7
	MaxPayload      = 1024
	MaxID           = 0x7ff
	// BroadcastID addresses every module on the bus.
	BroadcastID uint16 = 0

	checksumSeed byte = 0xFE
)

// Direction is the direction of a frame.
type Direction byte

// Directions
const (
	SlaveToMaster Direction = 0
	MasterToSlave Direction = 1
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == MasterToSlave {
		return "M>S"
	}
	return "S>M"
}

const (
	hdrMaskID    uint16 = 0x07ff
	hdrBitDir    uint16 = 1 << 11
	hdrBitAck    uint16 = 1 << 12
	hdrBitError  uint16 = 1 << 13
	hdrShiftRsvd        = 14
)

// Header is the packed bit-field following the opcode.
type Header struct {
	ID       uint16
	Dir      Direction
	Ack      bool
	Error    bool
	Reserved byte // 2 bits
}

// Word packs the header into its 16-bit form.
func (h Header) Word() uint16 {
	w := h.ID & hdrMaskID
	if h.Dir == MasterToSlave {
		w |= hdrBitDir
	}
	if h.Ack {
		w |= hdrBitAck
	}
	if h.Error {
		w |= hdrBitError
	}
	w |= uint16(h.Reserved&3) << hdrShiftRsvd
	return w
}

// HeaderFromWord unpacks a 16-bit header word.
func HeaderFromWord(w uint16) Header {
	h := Header{
		ID:       w & hdrMaskID,
		Ack:      w&hdrBitAck != 0,
		Error:    w&hdrBitError != 0,
		Reserved: byte(w >> hdrShiftRsvd),
	}
	if w&hdrBitDir != 0 {
		h.Dir = MasterToSlave
	}
	return h
}

// IsBroadcast indicates the frame addresses all modules.
func (h Header) IsBroadcast() bool {
	return h.ID == BroadcastID
}

// Frame is a decoded bus frame.
type Frame struct {
	Opcode byte
	Header
	Payload []byte
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	var flags string
	if f.Ack {
		flags += "A"
	}
	if f.Error {
		flags += "E"
	}
	return fmt.Sprintf("[%s id=%d op=%02x %s] % x", f.Dir, f.ID, f.Opcode, flags, f.Payload)
}

// Checksum computes the checksum over opcode, header, length and payload.
func Checksum(opcode byte, hdr uint16, payload []byte) byte {
	n := uint16(len(payload))
	sum := checksumSeed ^ opcode ^ byte(hdr>>8) ^ byte(hdr) ^ byte(n) ^ byte(n>>8)
	for _, b := range payload {
		sum ^= b
	}
	return sum
}

// Encode serializes a frame.
func Encode(opcode byte, h Header, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	if h.ID > MaxID {
		return nil, ErrInvalidID
	}
	word := h.Word()
	b := make([]byte, HeaderSize+len(payload))
	b[0], b[1] = Sync, opcode
	binary.BigEndian.PutUint16(b[2:4], word)
	binary.LittleEndian.PutUint16(b[4:6], uint16(len(payload)))
	b[6] = Checksum(opcode, word, payload)
	copy(b[HeaderSize:], payload)
	return b, nil
}

// Bytes encodes the frame.
func (f *Frame) Bytes() ([]byte, error) {
	return Encode(f.Opcode, f.Header, f.Payload)
}

// Decode decodes one frame from the beginning of b.
// It returns the number of bytes consumed, which is non-zero whenever the
// caller must advance: for a decoded frame, for skipped garbage (*SyncError),
// for an oversized length field and for a checksum mismatch (*ChecksumError).
// ErrTruncated consumes nothing, more bytes are needed.
func Decode(b []byte) (*Frame, int, error) {
	if skip := bytes.IndexByte(b, Sync); skip < 0 {
		if len(b) == 0 {
			return nil, 0, ErrTruncated
		}
		return nil, len(b), &SyncError{Skipped: len(b)}
	} else if skip > 0 {
		return nil, skip, &SyncError{Skipped: skip}
	}
	if len(b) < HeaderSize {
		return nil, 0, ErrTruncated
	}
	size := int(binary.LittleEndian.Uint16(b[4:6]))
	if size > MaxPayload {
		return nil, 1, ErrPayloadTooLarge
	}
	if len(b) < HeaderSize+size {
		return nil, 0, ErrTruncated
	}
	word := binary.BigEndian.Uint16(b[2:4])
	payload := b[HeaderSize : HeaderSize+size]
	if sum := Checksum(b[1], word, payload); sum != b[6] {
		return nil, 1, &ChecksumError{Want: sum, Got: b[6]}
	}
	f := &Frame{Opcode: b[1], Header: HeaderFromWord(word)}
	if size > 0 {
		f.Payload = append([]byte(nil), payload...)
	}
	return f, HeaderSize + size, nil
}
