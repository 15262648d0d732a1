// Package all registers the shell commands of every module type.
package all

import (
	_ "github.com/robotalks/iobus/pkg/cli/cmds/analog"
	_ "github.com/robotalks/iobus/pkg/cli/cmds/digital"
)
