package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, errChecksFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "groundstation",
		Short:         "CanSat ground station",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.AddCommand(newServeCommand(), newPortsCommand(), newDocsCheckCommand())
	return cmd
}
