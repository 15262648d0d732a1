package main

import (
	"github.com/robotalks/iobus/pkg/cli/sh"
	"github.com/robotalks/iobus/pkg/env"

	_ "github.com/robotalks/iobus/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
