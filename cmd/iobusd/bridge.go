package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/robotalks/iobus/pkg/bridge"
	"github.com/robotalks/iobus/pkg/env"
	"github.com/robotalks/iobus/pkg/framework"
	"github.com/robotalks/iobus/pkg/master"
)

func bridgeCmd() *cobra.Command {
	var (
		discover bool
		forwards []string
	)
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Serve the bus master over MQTT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(discover, forwards)
		},
	}
	cmd.Flags().BoolVar(&discover, "discover", true, "Discover modules on start")
	cmd.Flags().StringSliceVar(&forwards, "forward", nil, "Forward events as ID:TYPE")
	return cmd
}

func parseForward(s string) (uint16, byte, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid forward %q, expect ID:TYPE", s)
	}
	id, err := strconv.ParseUint(parts[0], 0, 11)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid module id %q", parts[0])
	}
	typ, err := strconv.ParseUint(parts[1], 0, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid event type %q", parts[1])
	}
	return uint16(id), byte(typ), nil
}

func runBridge(discover bool, forwards []string) error {
	conf, err := env.NewConfig()
	if err != nil {
		return err
	}
	m, bus, err := conf.NewMaster()
	if err != nil {
		return err
	}
	defer bus.Close()
	q, err := conf.OpenQueue()
	if err != nil {
		return err
	}
	defer q.Close()

	b := bridge.New(m, bridge.FromQueue(q))
	for _, fwd := range forwards {
		id, typ, err := parseForward(fwd)
		if err != nil {
			return err
		}
		b.Forward(typ, id)
	}

	r := framework.NewRunner().HandleSignals()
	r.Go(framework.NamedRun("master", m), framework.NamedRun("bridge", b))
	if discover {
		r.Go(framework.NamedFunc("discover", func(ctx context.Context) error {
			if err := discoverWhenRunning(ctx, b); err != nil && ctx.Err() == nil {
				glog.Warningf("discover: %v", err)
			}
			return nil
		}))
	}
	return r.Wait()
}

func discoverWhenRunning(ctx context.Context, b *bridge.Bridge) error {
	for {
		err := b.Discover(ctx)
		if !errors.Is(err, master.ErrNotRunning) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
