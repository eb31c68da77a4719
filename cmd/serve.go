package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/lockss-laaws/internal/config"
	"github.com/JakeFAU/lockss-laaws/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API",
		Long: `Starts the HTTP API and the metadata update workers. The process drains
in-flight requests and stops the workers on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app, err := server.Build(cmd.Context(), &cfg)
	if err != nil {
		return err
	}
	return app.Run(cmd.Context())
}
