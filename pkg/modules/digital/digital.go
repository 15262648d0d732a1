// Package digital implements the digital I/O function of modules: output
// drive with PWM, input read and input interrupts.
package digital

import (
	"errors"
	"fmt"
)

// DefaultPins is the number of pins of a discrete module.
const DefaultPins = 10

// OutputMode selects how an output is driven.
type OutputMode byte

// Output modes.
const (
	ModeDigital OutputMode = 0
	ModePWM     OutputMode = 1
)

// InterruptMode selects the input edge raising an interrupt.
type InterruptMode byte

// Interrupt modes.
const (
	InterruptRising  InterruptMode = 0
	InterruptFalling InterruptMode = 1
	InterruptChange  InterruptMode = 2
)

// ErrInvalidPin indicates a pin number the module doesn't have.
var ErrInvalidPin = errors.New("invalid pin")

// PWM frequency limits in Hz.
const (
	MinPWMFrequency = 50
	MaxPWMFrequency = 1000
)

// RangeError reports an argument outside its valid range.
type RangeError struct {
	What  string
	Value float64
}

// Error implements error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s out of range: %v", e.What, e.Value)
}
