package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/robotalks/iobus/pkg/env"
	"github.com/robotalks/iobus/pkg/framework"
	"github.com/robotalks/iobus/pkg/transport"
	"github.com/robotalks/iobus/pkg/transport/mqtt"
	"github.com/robotalks/iobus/pkg/transport/websocket"
)

const relayPoll = 100 * time.Millisecond

func gatewayCmd() *cobra.Command {
	var (
		listen  string
		mqttBus string
	)
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Expose the wire to a remote master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" && mqttBus == "" {
				return errors.New("either --listen or --mqtt-bus is required")
			}
			if listen != "" && mqttBus != "" {
				return errors.New("--listen and --mqtt-bus are exclusive")
			}
			return runGateway(listen, mqttBus)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Serve a websocket master at this address")
	cmd.Flags().StringVar(&mqttBus, "mqtt-bus", "", "Relay the wire to bus/NAME topics on the MQTT broker")
	return cmd
}

func runGateway(listen, mqttBus string) error {
	conf, err := env.NewConfig()
	if err != nil {
		return err
	}
	bus, err := conf.OpenBus(env.RoleModule)
	if err != nil {
		return err
	}
	defer bus.Close()

	r := framework.NewRunner().HandleSignals()
	if mqttBus != "" {
		q, err := conf.OpenQueue()
		if err != nil {
			return err
		}
		defer q.Close()
		remote := mqtt.ForGateway(q, mqttBus)
		defer remote.Close()
		r.Go(framework.NamedFunc("relay", func(ctx context.Context) error {
			return transport.Relay(ctx, bus, remote, relayPoll)
		}))
		return r.Wait()
	}

	// the wire has a single master, extra clients are turned away
	sem := make(chan struct{}, 1)
	server := &http.Server{
		Addr: listen,
		Handler: websocket.Handler(func(t *websocket.Transport) {
			select {
			case sem <- struct{}{}:
			default:
				glog.Warning("gateway: master already attached, rejecting client")
				return
			}
			defer func() { <-sem }()
			glog.Info("gateway: master attached")
			err := transport.Relay(r.Context(), t, bus, relayPoll)
			glog.Infof("gateway: master detached: %v", err)
		}),
	}
	r.Go(framework.NamedFunc("websocket", func(ctx context.Context) error {
		glog.Infof("gateway: listening on %s", listen)
		return framework.RunWithContextCloser(ctx, server, func() error {
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}))
	return r.Wait()
}
