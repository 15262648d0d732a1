package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates more bytes are needed to complete a frame.
	ErrTruncated = errors.New("truncated frame")
	// ErrPayloadTooLarge indicates the payload exceeds the medium's maximum.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInvalidID indicates the id doesn't fit in 11 bits.
	ErrInvalidID = errors.New("invalid id")
	// ErrShortPayload indicates a payload field is read beyond the end.
	ErrShortPayload = errors.New("short payload")
)

// SyncError reports bytes skipped to find the next sync marker.
type SyncError struct {
	Skipped int
}

// Error implements error.
func (e *SyncError) Error() string {
	return fmt.Sprintf("sync lost, %d byte(s) skipped", e.Skipped)
}

// ChecksumError reports a checksum mismatch.
type ChecksumError struct {
	Want byte
	Got  byte
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: want %02x, got %02x", e.Want, e.Got)
}
