package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/checkstat/internal/client"
	"github.com/Sumatoshi-tech/checkstat/internal/mcp"
	"github.com/Sumatoshi-tech/checkstat/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server reads statistics from a running checkstat server and exposes
them as tools that AI agents can discover and invoke:
  - checkpoint_statistics: checkpoint statistics of a job (json, table or yaml)
  - list_jobs: jobs and whether checkpointing is enabled
  - checkpoint_schema: JSON schema of the statistics document`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			applyClientFlags(cmd, cfg)

			if debug {
				cfg.Logging.Level = "debug"
			}

			providers, err := initObservability(cfg, observability.ModeMCP)
			if err != nil {
				return err
			}

			defer shutdownObservability(providers)

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			source, err := client.New(cfg.Client.URL, client.WithTimeout(cfg.Client.Timeout))
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Source:  source,
				Logger:  providers.Logger,
				Metrics: red,
				Tracer:  providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}

	addClientFlags(cmd)
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
