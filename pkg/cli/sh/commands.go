package sh

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/iobus/pkg/master"
	"github.com/robotalks/iobus/pkg/protocol"
)

var ledStates = map[string]byte{
	"on":    protocol.LEDOn,
	"off":   protocol.LEDOff,
	"blink": protocol.LEDBlink,
}

var ledColors = map[string]byte{
	"none":   protocol.LEDNone,
	"red":    protocol.LEDRed,
	"green":  protocol.LEDGreen,
	"yellow": protocol.LEDYellow,
	"blue":   protocol.LEDBlue,
	"purple": protocol.LEDPurple,
	"cyan":   protocol.LEDCyan,
	"white":  protocol.LEDWhite,
}

var (
	// OpenCmd opens the bus.
	OpenCmd = ishell.Cmd{
		Name: "open",
		Help: "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Config.Bus = c.Args[0]
			}
			if err := s.Open(); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the bus.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// DiscoverCmd enumerates the bus.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"discover-slaves", "l"},
		Help:    "[WINDOW]",
		Func: MustBeOpen(func(c *ishell.Context) {
			window := master.DefaultDiscoverWindow
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				window = d
			}
			found, err := MasterFrom(c).Discover(Context(c), window)
			if err != nil {
				c.Err(err)
				return
			}
			printModules(c, found)
		}),
	}

	// ModulesCmd lists the modules found by the last discovery.
	ModulesCmd = ishell.Cmd{
		Name:    "modules",
		Aliases: []string{"ls"},
		Func: MustBeOpen(func(c *ishell.Context) {
			printModules(c, MasterFrom(c).Directory().All())
		}),
	}

	// PingCmd finds a module by type and serial number.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "TYPE SERIAL",
		Func: MustBeOpen(MinArgs(2, func(c *ishell.Context) {
			typ, err := strconv.ParseUint(c.Args[0], 0, 16)
			if err != nil {
				c.Err(fmt.Errorf("invalid type %q", c.Args[0]))
				return
			}
			serial, err := strconv.ParseUint(c.Args[1], 0, 32)
			if err != nil {
				c.Err(fmt.Errorf("invalid serial %q", c.Args[1]))
				return
			}
			id, err := MasterFrom(c).Ping(Context(c), uint16(typ), uint32(serial))
			if err != nil {
				c.Err(err)
				return
			}
			Print(c, id)
		})),
	}

	// InfoCmd reads the board information of a module.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"board-info"},
		Help:    "ID",
		Func: MustBeOpen(MinArgs(1, func(c *ishell.Context) {
			id, err := ParseID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			info, err := MasterFrom(c).BoardInfo(Context(c), id)
			if err != nil {
				c.Err(err)
				return
			}
			if ShellFrom(c).OutputJSON {
				Print(c, info)
				return
			}
			c.Printf("type=%s variant=%d serial=%d version=%s", protocol.TypeName(info.Type), info.Variant, info.Serial, info.SoftwareVersion)
			if !info.ManufacturedAt.IsZero() {
				c.Printf(" date=%s", info.ManufacturedAt.Format("2006-01-02"))
			}
			c.Println()
		})),
	}

	// LEDCmd sets the status LED of a module.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "ID on|off|blink [COLOR] [PERIOD]",
		Func: MustBeOpen(MinArgs(2, func(c *ishell.Context) {
			id, err := ParseID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			state, ok := ledStates[c.Args[1]]
			if !ok {
				c.Err(fmt.Errorf("invalid LED state %q", c.Args[1]))
				return
			}
			led := protocol.LED{State: state, Color: protocol.LEDGreen}
			if len(c.Args) > 2 {
				if led.Color, ok = ledColors[c.Args[2]]; !ok {
					c.Err(fmt.Errorf("invalid LED color %q", c.Args[2]))
					return
				}
			}
			if len(c.Args) > 3 {
				if led.Period, err = time.ParseDuration(c.Args[3]); err != nil {
					c.Err(err)
					return
				}
			}
			if err = MasterFrom(c).SetLED(Context(c), id, led); err != nil {
				c.Err(err)
			}
		})),
	}

	// RestartCmd restarts a module, or all with id 0.
	RestartCmd = ishell.Cmd{
		Name: "restart",
		Help: "ID",
		Func: MustBeOpen(MinArgs(1, func(c *ishell.Context) {
			id, err := ParseID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err = MasterFrom(c).Restart(Context(c), id); err != nil {
				c.Err(err)
			}
		})),
	}

	// RegisterCmd reads a diagnostic register.
	RegisterCmd = ishell.Cmd{
		Name:    "reg",
		Aliases: []string{"read-register"},
		Help:    "ID ADDR",
		Func: MustBeOpen(MinArgs(2, func(c *ishell.Context) {
			id, err := ParseID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			addr, err := strconv.ParseUint(c.Args[1], 0, 32)
			if err != nil {
				c.Err(fmt.Errorf("invalid address %q", c.Args[1]))
				return
			}
			v, err := MasterFrom(c).ReadRegister(Context(c), id, uint32(addr))
			if err != nil {
				c.Err(err)
				return
			}
			if ShellFrom(c).OutputJSON {
				Print(c, v)
				return
			}
			c.Printf("0x%08x\n", v)
		})),
	}

	// RequestCmd sends a raw request.
	RequestCmd = ishell.Cmd{
		Name:    "request",
		Aliases: []string{"req"},
		Help:    "ID OPCODE [HEX...]",
		Func: MustBeOpen(MinArgs(2, func(c *ishell.Context) {
			id, err := ParseID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			op, err := ParseByte(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			payload, err := ParseBytes(c.Args[2:])
			if err != nil {
				c.Err(err)
				return
			}
			resp, err := MasterFrom(c).Request(Context(c), id, op, payload)
			if err != nil {
				c.Err(err)
				return
			}
			Print(c, resp)
		})),
	}

	// WatchCmd prints events of a module.
	WatchCmd = ishell.Cmd{
		Name: "watch",
		Help: "ID EVENT [off]",
		Func: MustBeOpen(MinArgs(2, func(c *ishell.Context) {
			id, err := ParseID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			evt, err := ParseByte(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			m := MasterFrom(c)
			if len(c.Args) > 2 && c.Args[2] == "off" {
				m.Unsubscribe(evt, id)
				return
			}
			m.Subscribe(evt, id, func(ev master.Event) {
				c.Printf("event %02x from module %d: % x\n", ev.Type, ev.ModuleID, ev.Payload)
			})
		})),
	}

	// StatsCmd prints master counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Func: MustBeOpen(func(c *ishell.Context) {
			st := MasterFrom(c).Stats()
			if ShellFrom(c).OutputJSON {
				Print(c, st)
				return
			}
			c.Printf("sent=%d retries=%d timeouts=%d nacks=%d dropped=%d events=%d\n",
				st.Sent, st.Retries, st.Timeouts, st.Nacks, st.Dropped, st.Events)
		}),
	}
)
