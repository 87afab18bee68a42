package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsx/cansat-groundstation/internal/link"
)

func newPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports the ground radio can be opened on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := link.SerialOpener{}.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				_, err := fmt.Fprintln(out, "no serial ports found")
				return err
			}
			for _, p := range ports {
				if _, err := fmt.Fprintln(out, p.Label()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
