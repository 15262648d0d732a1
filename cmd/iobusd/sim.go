package main

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/robotalks/iobus/pkg/env"
	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/framework"
	"github.com/robotalks/iobus/pkg/modules/analog"
	"github.com/robotalks/iobus/pkg/modules/digital"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/slave"
)

// Registers exposed by simulated modules.
const (
	regUptime    uint32 = 0
	regEventDrop uint32 = 1
)

type simOptions struct {
	id       uint16
	kind     string
	serial   uint32
	channels int
	slot     time.Duration
}

func simCmd() *cobra.Command {
	var opts simOptions
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a simulated module on the bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(opts)
		},
	}
	cmd.Flags().Uint16Var(&opts.id, "id", 1, "Module id")
	cmd.Flags().StringVar(&opts.kind, "kind", "digital", "Module kind: digital or analog")
	cmd.Flags().Uint32Var(&opts.serial, "serial", 1, "Serial number")
	cmd.Flags().IntVar(&opts.channels, "channels", 0, "Number of pins or channels, 0 for the default")
	cmd.Flags().DurationVar(&opts.slot, "discover-slot", 2*time.Millisecond, "Discover answer delay per module id; the master's discover window must exceed id x slot")
	return cmd
}

func newSimSlave(bus *env.Bus, opts simOptions) (*slave.Slave, error) {
	if opts.id == frame.BroadcastID || opts.id > frame.MaxID {
		return nil, fmt.Errorf("invalid module id %d", opts.id)
	}
	info := protocol.BoardInfo{
		Serial:          opts.serial,
		ManufacturedAt:  time.Now().Truncate(time.Second),
		SoftwareVersion: "sim",
	}
	var register func(*slave.Slave) error
	switch opts.kind {
	case "digital":
		n := opts.channels
		if n <= 0 {
			n = digital.DefaultPins
		}
		info.Type = protocol.TypeDiscrete
		hw := digital.NewSim(n)
		register = func(s *slave.Slave) error { return digital.Register(s, hw) }
	case "analog":
		n := opts.channels
		if n <= 0 {
			n = analog.DefaultChannels
		}
		info.Type = protocol.TypeAnalogInput
		hw := analog.NewSim(n)
		register = func(s *slave.Slave) error { return analog.Register(s, hw) }
	default:
		return nil, fmt.Errorf("unknown module kind %q", opts.kind)
	}

	s := slave.New(bus, opts.id, info)
	s.DiscoverSlot = opts.slot
	s.LED = func(led protocol.LED) {
		glog.Infof("sim %d: LED %v", opts.id, led)
	}
	started := time.Now()
	s.Registers = slave.RegisterProviderFunc(func(addr uint32) (uint32, error) {
		switch addr {
		case regUptime:
			return uint32(time.Since(started) / time.Second), nil
		case regEventDrop:
			return uint32(s.Events().Dropped()), nil
		}
		return 0, slave.ErrNoRegisters
	})
	s.RegisterResetHandler(func() {
		glog.Infof("sim %d: restart", opts.id)
		started = time.Now()
	})
	if err := register(s); err != nil {
		return nil, err
	}
	return s, nil
}

func runSim(opts simOptions) error {
	conf, err := env.NewConfig()
	if err != nil {
		return err
	}
	bus, err := conf.OpenBus(env.RoleModule)
	if err != nil {
		return err
	}
	defer bus.Close()
	s, err := newSimSlave(bus, opts)
	if err != nil {
		return err
	}
	glog.Infof("sim: %s module %d serial %d", opts.kind, opts.id, opts.serial)
	return framework.NewRunner().HandleSignals().
		Go(framework.NamedRun("slave", s)).
		Wait()
}
