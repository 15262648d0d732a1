// Package serial provides the RS485 serial port transport.
package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/robotalks/iobus/pkg/transport"
)

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3").
	Device string
	// Baud rate.
	Baud int
	// ReadTimeout bounds each Read so the reader never blocks forever.
	ReadTimeout time.Duration
}

// DefaultConfig returns the default configuration for a bus device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        1000000,
		ReadTimeout: 50 * time.Millisecond,
	}
}

// Port wraps a tarm/serial port. A read timeout is reported as (0, nil).
type Port struct {
	port *serial.Port
}

// OpenPort opens the serial port.
func OpenPort(cfg *Config) (*Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return &Port{port: port}, nil
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if err == io.EOF && n == 0 {
		return 0, nil
	}
	return n, err
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.port.Close()
}

// Open opens the serial port and wraps it as a stream transport.
func Open(cfg *Config) (*transport.Stream, error) {
	port, err := OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return transport.NewStream(port), nil
}
