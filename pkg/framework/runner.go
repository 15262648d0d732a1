package framework

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait when a second stop signal arrives
// before all tasks finished.
var ErrForcedExit = errors.New("forced exit")

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun attaches a name to a Runnable.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// NamedFunc is NamedRun with a func.
func NamedFunc(name string, fn func(context.Context) error) Runnable {
	return NamedRun(name, RunnableFunc(fn))
}

// Runner starts tasks on a shared context. The first task to fail cancels
// the others.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	count  int
	errCh  chan error
	exitCh chan struct{}
}

// NewRunner creates a Runner on a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a Runner derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		errCh:  make(chan error),
		exitCh: make(chan struct{}),
	}
}

// Context returns the context shared by the tasks.
func (r *Runner) Context() context.Context {
	return r.ctx
}

// HandleSignals stops the tasks on SIGINT or SIGTERM. A second signal
// makes Wait return without waiting.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Go starts tasks.
func (r *Runner) Go(tasks ...Runnable) *Runner {
	for _, task := range tasks {
		name := strconv.Itoa(r.count)
		if named, ok := task.(Named); ok {
			name = named.Name()
		}
		r.count++
		go func(task Runnable, name string) {
			glog.V(4).Infof("task %s started", name)
			err := task.Run(r.ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				glog.Errorf("task %s failed: %v", name, err)
				r.cancel()
			} else {
				glog.V(4).Infof("task %s stopped", name)
			}
			r.errCh <- err
		}(task, name)
	}
	return r
}

// Wait waits for all tasks and aggregates their failures.
func (r *Runner) Wait() error {
	defer r.cancel()
	var errs AggregatedError
	for n := 0; n < r.count; n++ {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case err := <-r.errCh:
			if !errors.Is(err, context.Canceled) {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}

// RunWithContextCloser runs fn which doesn't take a context, closing closer
// when ctx is canceled to make fn return. closer is always closed.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}
