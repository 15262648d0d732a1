package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/robotalks/iobus/pkg/env"
)

//go-build: CGO_ENABLED=0

var rootCmd = &cobra.Command{
	Use:          "iobusd",
	Short:        "I/O bus daemons",
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// glog refuses to log before the go flag set is parsed.
		flag.CommandLine.Parse(nil)
	},
}

func init() {
	env.SetupFlags()
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.AddCommand(bridgeCmd(), gatewayCmd(), simCmd(), dumpCmd())
}

func main() {
	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
