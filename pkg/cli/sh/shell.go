// Package sh provides the interactive bus shell.
package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/iobus/pkg/env"
	"github.com/robotalks/iobus/pkg/master"
)

// Shell is an ishell backed interactive shell driving a bus master.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is an opened bus with its running master.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	Bus    *env.Bus
	Master *master.Master
}

const (
	shellKey     = "$shell"
	closedPrompt = "[no bus] > "
)

var (
	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&DiscoverCmd,
		&ModulesCmd,
		&PingCmd,
		&InfoCmd,
		&LEDCmd,
		&RestartCmd,
		&RegisterCmd,
		&RequestCmd,
		&WatchCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by command providers during init.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a Shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Shell:       ishell.New(),
		Config:      conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets the Shell from an ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MasterFrom returns the master of the opened bus.
func MasterFrom(c *ishell.Context) *master.Master {
	return ShellFrom(c).Conn.Master
}

// Context returns the context of the opened bus.
func Context(c *ishell.Context) context.Context {
	return ShellFrom(c).Conn.Ctx
}

// MustBeOpen wraps a command requiring an opened bus.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("bus not open"))
			return
		}
		fn(c)
	}
}

// MinArgs wraps a command requiring at least n arguments.
func MinArgs(n int, fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) < n {
			c.Err(fmt.Errorf("%d argument(s) required", n))
			return
		}
		fn(c)
	}
}

// ParseID parses a module id.
func ParseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 11)
	if err != nil {
		return 0, fmt.Errorf("invalid module id %q", s)
	}
	return uint16(v), nil
}

// ParseByte parses a decimal or 0x prefixed byte.
func ParseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}

// ParseBytes parses hex strings like "01 02" or "0102".
func ParseBytes(args []string) ([]byte, error) {
	return hex.DecodeString(strings.Join(args, ""))
}

// Print prints v as JSON or with its default format.
func Print(c *ishell.Context, v interface{}) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	switch val := v.(type) {
	case []byte:
		c.Println(hex.EncodeToString(val))
	case fmt.Stringer:
		c.Println(val.String())
	default:
		c.Printf("%v\n", v)
	}
}

// Open opens the configured bus and starts a master on it.
func (s *Shell) Open() error {
	m, bus, err := s.Config.NewMaster()
	if err != nil {
		return err
	}
	conn := &Conn{Bus: bus, Master: m}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	s.Close()
	s.Conn = conn
	go func() {
		if err := m.Run(conn.Ctx); err != nil && err != context.Canceled {
			log.Printf("bus stopped: %v", err)
		}
	}()
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", s.Config.Bus))
	return nil
}

// Close closes the opened bus.
func (s *Shell) Close() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn.Bus.Close()
		s.Conn = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Run runs the shell, or a single command when args are given.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen {
		if err := s.Open(); err != nil {
			log.Fatalf("open bus %q failed: %v", s.Config.Bus, err)
		}
		defer s.Close()
	}
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s := New(env.MustNewConfig())
	s.AutoOpen = true
	s.Run(flag.Args()...)
}
