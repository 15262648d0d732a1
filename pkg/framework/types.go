// Package framework provides the process scaffolding shared by the
// binaries: concurrent runners with signal handling and error aggregation.
package framework

import "context"

// Named is implemented by things with a name for logging.
type Named interface {
	Name() string
}

// Runnable is a long running task stopped by canceling its context.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableFunc is the func form of Runnable.
type RunnableFunc func(ctx context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}
