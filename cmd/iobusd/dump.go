package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/transport"
)

func dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE",
		Short: "Print frames recorded with -capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			records, err := transport.ReadCapture(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rec := range records {
				decoded, _, err := frame.Decode(rec.Data)
				if err != nil {
					fmt.Fprintf(out, "%s ! %v: % x\n", rec.Time.Format("15:04:05.000000"), err, rec.Data)
					continue
				}
				fmt.Fprintf(out, "%s %-13s %s\n", rec.Time.Format("15:04:05.000000"),
					protocol.OpName(decoded.Opcode), decoded)
			}
			return nil
		},
	}
}
