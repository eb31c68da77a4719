// Package cmd defines the CLI commands of the laaws executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laaws",
		Short: "Web services for a LOCKSS node's metadata, metadata updates and polls.",
		Long: `laaws serves the metadata of the archival units held by a LOCKSS node,
schedules metadata update jobs, and reports on the polls the node calls and
votes in. Large collections are paged with continuation tokens or page numbers.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file (env vars prefixed LAAWS_ override it)")
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
