package digital

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/iobus/pkg/cli/sh"
	"github.com/robotalks/iobus/pkg/master"
	"github.com/robotalks/iobus/pkg/modules/digital"
)

var interruptModes = map[string]digital.InterruptMode{
	"rising":  digital.InterruptRising,
	"falling": digital.InterruptFalling,
	"change":  digital.InterruptChange,
}

// pinCmd parses ID PIN and runs fn with a client.
func pinCmd(n int, fn func(c *ishell.Context, client *digital.Client, pin int)) func(c *ishell.Context) {
	return sh.MustBeOpen(sh.MinArgs(n, func(c *ishell.Context) {
		id, err := sh.ParseID(c.Args[0])
		if err != nil {
			c.Err(err)
			return
		}
		pin, err := strconv.Atoi(c.Args[1])
		if err != nil {
			c.Err(fmt.Errorf("invalid pin %q", c.Args[1]))
			return
		}
		fn(c, clientFor(c, id), pin)
	}))
}

type clientKey struct {
	master *master.Master
	id     uint16
}

// clients keeps one client per module so interrupt callbacks survive
// between commands.
var clients = make(map[clientKey]*digital.Client)

func clientFor(c *ishell.Context, id uint16) *digital.Client {
	key := clientKey{master: sh.MasterFrom(c), id: id}
	if client, ok := clients[key]; ok {
		return client
	}
	client := digital.NewClient(key.master, id, digital.DefaultPins)
	clients[key] = client
	return client
}

var (
	// WriteCmd sets an output.
	WriteCmd = ishell.Cmd{
		Name:    "digital.write",
		Aliases: []string{"dw"},
		Help:    "ID PIN 0|1",
		Func: pinCmd(3, func(c *ishell.Context, client *digital.Client, pin int) {
			level, err := strconv.ParseBool(c.Args[2])
			if err != nil {
				c.Err(err)
				return
			}
			if err = client.Write(sh.Context(c), pin, level); err != nil {
				c.Err(err)
			}
		}),
	}

	// ToggleCmd inverts an output.
	ToggleCmd = ishell.Cmd{
		Name:    "digital.toggle",
		Aliases: []string{"dt"},
		Help:    "ID PIN",
		Func: pinCmd(2, func(c *ishell.Context, client *digital.Client, pin int) {
			if err := client.Toggle(sh.Context(c), pin); err != nil {
				c.Err(err)
			}
		}),
	}

	// ReadCmd reads an input.
	ReadCmd = ishell.Cmd{
		Name:    "digital.read",
		Aliases: []string{"dr"},
		Help:    "ID PIN",
		Func: pinCmd(2, func(c *ishell.Context, client *digital.Client, pin int) {
			level, err := client.Read(sh.Context(c), pin)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, level)
		}),
	}

	// PWMCmd switches an output to PWM with a duty cycle.
	PWMCmd = ishell.Cmd{
		Name:    "digital.pwm",
		Aliases: []string{"dpwm"},
		Help:    "ID PIN DUTY(%) [FREQ(Hz)]",
		Func: pinCmd(3, func(c *ishell.Context, client *digital.Client, pin int) {
			duty, err := strconv.ParseFloat(c.Args[2], 32)
			if err != nil {
				c.Err(fmt.Errorf("invalid DUTY: %v", err))
				return
			}
			ctx := sh.Context(c)
			if err = client.SetOutputMode(ctx, pin, digital.ModePWM); err != nil {
				c.Err(err)
				return
			}
			if len(c.Args) > 3 {
				freq, err := strconv.ParseUint(c.Args[3], 10, 32)
				if err != nil {
					c.Err(fmt.Errorf("invalid FREQ: %v", err))
					return
				}
				if err = client.SetPWMFrequency(ctx, pin, uint32(freq)); err != nil {
					c.Err(err)
					return
				}
			}
			if err = client.SetPWMDutyCycle(ctx, pin, float32(duty)); err != nil {
				c.Err(err)
			}
		}),
	}

	// CurrentCmd reads the current of an output.
	CurrentCmd = ishell.Cmd{
		Name:    "digital.current",
		Aliases: []string{"dcur"},
		Help:    "ID PIN",
		Func: pinCmd(2, func(c *ishell.Context, client *digital.Client, pin int) {
			amps, err := client.OutputCurrent(sh.Context(c), pin)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, amps)
		}),
	}

	// AttachCmd prints interrupts of an input.
	AttachCmd = ishell.Cmd{
		Name:    "digital.attach",
		Aliases: []string{"dint"},
		Help:    "ID PIN rising|falling|change|off",
		Func: pinCmd(3, func(c *ishell.Context, client *digital.Client, pin int) {
			ctx := sh.Context(c)
			if c.Args[2] == "off" {
				if err := client.DetachInterrupt(ctx, pin); err != nil {
					c.Err(err)
				}
				return
			}
			mode, ok := interruptModes[c.Args[2]]
			if !ok {
				c.Err(fmt.Errorf("invalid mode %q", c.Args[2]))
				return
			}
			id := c.Args[0]
			err := client.AttachInterrupt(ctx, pin, mode, func(pin int) {
				c.Printf("interrupt: module %s pin %d\n", id, pin)
			})
			if err != nil {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&WriteCmd,
		&ToggleCmd,
		&ReadCmd,
		&PWMCmd,
		&CurrentCmd,
		&AttachCmd,
	)
}
