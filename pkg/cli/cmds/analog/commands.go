package analog

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/iobus/pkg/cli/sh"
	"github.com/robotalks/iobus/pkg/modules/analog"
)

func channelCmd(n int, fn func(c *ishell.Context, client *analog.Client, ch int)) func(c *ishell.Context) {
	return sh.MustBeOpen(sh.MinArgs(n, func(c *ishell.Context) {
		id, err := sh.ParseID(c.Args[0])
		if err != nil {
			c.Err(err)
			return
		}
		ch, err := strconv.Atoi(c.Args[1])
		if err != nil {
			c.Err(fmt.Errorf("invalid channel %q", c.Args[1]))
			return
		}
		fn(c, analog.NewClient(sh.MasterFrom(c), id), ch)
	}))
}

var (
	// ReadCmd reads an input.
	ReadCmd = ishell.Cmd{
		Name:    "analog.read",
		Aliases: []string{"ar"},
		Help:    "ID CH [raw|v|mv|a|ma]",
		Func: channelCmd(2, func(c *ishell.Context, client *analog.Client, ch int) {
			ctx := sh.Context(c)
			unit := "v"
			if len(c.Args) > 2 {
				unit = c.Args[2]
			}
			var (
				val interface{}
				err error
			)
			switch unit {
			case "raw":
				val, err = client.Read(ctx, ch)
			case "v":
				val, err = client.ReadVolt(ctx, ch)
			case "mv":
				val, err = client.ReadMillivolt(ctx, ch)
			case "a":
				val, err = client.ReadAmp(ctx, ch)
			case "ma":
				val, err = client.ReadMilliamp(ctx, ch)
			default:
				err = fmt.Errorf("invalid unit %q", unit)
			}
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, val)
		}),
	}

	// ModeCmd selects voltage or current input.
	ModeCmd = ishell.Cmd{
		Name:    "analog.mode",
		Aliases: []string{"am"},
		Help:    "ID CH voltage|current",
		Func: channelCmd(3, func(c *ishell.Context, client *analog.Client, ch int) {
			mode := analog.InputVoltage
			switch c.Args[2] {
			case "voltage":
			case "current":
				mode = analog.InputCurrent
			default:
				c.Err(fmt.Errorf("invalid mode %q", c.Args[2]))
				return
			}
			if err := client.SetInputMode(sh.Context(c), ch, mode); err != nil {
				c.Err(err)
			}
		}),
	}

	// RangeCmd selects the voltage range of an input.
	RangeCmd = ishell.Cmd{
		Name:    "analog.range",
		Aliases: []string{"arng"},
		Help:    "ID CH RANGE(0-7)",
		Func: channelCmd(3, func(c *ishell.Context, client *analog.Client, ch int) {
			rng, err := sh.ParseByte(c.Args[2])
			if err != nil {
				c.Err(err)
				return
			}
			if err = client.SetVoltageRange(sh.Context(c), ch, analog.VoltageRange(rng)); err != nil {
				c.Err(err)
			}
		}),
	}

	// WriteCmd sets an output.
	WriteCmd = ishell.Cmd{
		Name:    "analog.write",
		Aliases: []string{"aw"},
		Help:    "ID CH VALUE",
		Func: channelCmd(3, func(c *ishell.Context, client *analog.Client, ch int) {
			val, err := strconv.ParseFloat(c.Args[2], 32)
			if err != nil {
				c.Err(fmt.Errorf("invalid VALUE: %v", err))
				return
			}
			if err = client.Write(sh.Context(c), ch, float32(val)); err != nil {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&ReadCmd,
		&ModeCmd,
		&RangeCmd,
		&WriteCmd,
	)
}
