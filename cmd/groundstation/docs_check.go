package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsx/cansat-groundstation/internal/docs"
)

var errChecksFailed = errors.New("documentation checks failed")

func newDocsCheckCommand() *cobra.Command {
	var (
		opts   docs.Options
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "docs-check <README.md>",
		Short: "Check README images, links and team roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := docs.Check(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(report)
			} else {
				err = report.WriteText(out)
			}
			if err != nil {
				return err
			}

			if !report.OK() {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Skip external link checks")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "Parallel link checks")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "Timeout per link request")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
