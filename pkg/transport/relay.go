package transport

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// Relay forwards frames both ways between a and b until ctx is done or
// either side fails. It becomes the reader of both transports.
func Relay(ctx context.Context, a, b Transport, poll time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 2)
	go func() { errCh <- pump(ctx, a, b, poll) }()
	go func() { errCh <- pump(ctx, b, a, poll) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func pump(ctx context.Context, from, to Transport, poll time.Duration) error {
	for ctx.Err() == nil {
		b, err := from.Receive(poll)
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			return err
		}
		glog.V(4).Infof("relay: % x", b)
		if err = to.Send(ctx, b); err != nil {
			return err
		}
	}
	return ctx.Err()
}
