package master

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidID indicates a module id outside the 11-bit id space.
	ErrInvalidID = errors.New("invalid module id")
	// ErrNotRunning indicates Request was called while Run is not active.
	ErrNotRunning = errors.New("master not running")
)

// TimeoutError is returned when a module didn't answer after all attempts.
type TimeoutError struct {
	ModuleID uint16
	Opcode   byte
	Attempts int
}

// Error implements error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("module %d: opcode %02x: no response after %d attempt(s)", e.ModuleID, e.Opcode, e.Attempts)
}

// Timeout indicates this is a timeout error.
func (e *TimeoutError) Timeout() bool { return true }

// Temporary indicates the condition may go away on a later request.
func (e *TimeoutError) Temporary() bool { return true }

// NackError is returned when the module answered with the error flag.
// It is never retried.
type NackError struct {
	ModuleID uint16
	Opcode   byte
	Payload  []byte
}

// Error implements error.
func (e *NackError) Error() string {
	if code, ok := e.Code(); ok {
		return fmt.Sprintf("module %d: opcode %02x rejected: fault %d", e.ModuleID, e.Opcode, code)
	}
	return fmt.Sprintf("module %d: opcode %02x rejected", e.ModuleID, e.Opcode)
}

// Code returns the fault code when the module provided one.
func (e *NackError) Code() (byte, bool) {
	if len(e.Payload) > 0 {
		return e.Payload[0], true
	}
	return 0, false
}

// IsNack reports whether err is a NACK from a module.
func IsNack(err error) bool {
	var nack *NackError
	return errors.As(err, &nack)
}
