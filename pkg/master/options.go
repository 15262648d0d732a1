package master

import "time"

// Defaults of request options.
const (
	DefaultTimeout      = 100 * time.Millisecond
	DefaultMaxRetries   = 2
	DefaultPollInterval = 100 * time.Millisecond
)

// Options control a single request.
type Options struct {
	// Timeout for each transmission.
	Timeout time.Duration
	// MaxRetries is the number of retransmissions after the first one.
	MaxRetries int
	// NoAck sends without expecting an answer.
	NoAck bool
}

// RequestOption customizes Options.
type RequestOption func(*Options)

// WithTimeout sets the per-transmission timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *Options) { o.Timeout = d }
}

// WithRetries sets the number of retransmissions.
func WithRetries(n int) RequestOption {
	return func(o *Options) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

// WithoutAck sends the request without waiting for an answer.
func WithoutAck() RequestOption {
	return func(o *Options) { o.NoAck = true }
}
