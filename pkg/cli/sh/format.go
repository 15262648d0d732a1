package sh

import (
	"github.com/abiosoft/ishell"

	"github.com/robotalks/iobus/pkg/directory"
	"github.com/robotalks/iobus/pkg/protocol"
)

func printModules(c *ishell.Context, modules []directory.Identity) {
	if ShellFrom(c).OutputJSON {
		if modules == nil {
			modules = []directory.Identity{}
		}
		Print(c, modules)
		return
	}
	if len(modules) == 0 {
		c.Println("No modules found")
		return
	}
	for _, m := range modules {
		c.Printf("%4d  %-12s  %d\n", m.ID, protocol.TypeName(m.Type), m.Serial)
	}
}
