// Package analog implements the analog I/O function of modules: input
// acquisition in voltage or current mode and analog outputs.
package analog

import "errors"

// DefaultChannels is the number of channels of an analog module.
const DefaultChannels = 4

// InputMode selects what an input measures.
type InputMode byte

// Input modes.
const (
	InputVoltage InputMode = 0
	InputCurrent InputMode = 1
)

// VoltageRange selects the full scale of an input in voltage mode.
type VoltageRange byte

// Voltage ranges.
const (
	Range10V24  VoltageRange = 0
	Range5V12   VoltageRange = 1
	Range2V56   VoltageRange = 2
	Range1V28   VoltageRange = 3
	Range0V64   VoltageRange = 4
	Range0V32   VoltageRange = 5
	Range0V16   VoltageRange = 6
	Range0V08   VoltageRange = 7
	maxRange                 = Range0V08
	rangeVolts10             = 10.24
)

// FullScale returns the range full scale in Volt.
func (r VoltageRange) FullScale() float32 {
	return rangeVolts10 / float32(uint32(1)<<r)
}

// OutputMode selects what an output drives.
type OutputMode byte

// Output modes.
const (
	OutputVoltage OutputMode = 0
	OutputCurrent OutputMode = 1
)

var (
	// ErrInvalidChannel indicates a channel number the module doesn't have.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidMode indicates an unknown mode or range value.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrWrongMode indicates a read not matching the input mode.
	ErrWrongMode = errors.New("input not in requested mode")
)
