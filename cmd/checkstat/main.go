// Package main provides the entry point for the checkstat CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/checkstat/cmd/checkstat/commands"
	"github.com/Sumatoshi-tech/checkstat/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "checkstat",
		Short: "Checkpoint statistics for stream-processing jobs",
		Long: `checkstat tracks checkpoint statistics of stream-processing jobs and serves them
over HTTP for monitoring.

Commands:
  serve     Run the statistics server, optionally driving a simulated job
  stats     Print the checkpoint statistics of a job
  plot      Render the checkpoint history of a job as an HTML page
  mcp       Expose the statistics to AI agents over MCP stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(commands.FlagConfig, "", "config file (default is ./.checkstat.yaml or $HOME/.checkstat.yaml)")
	rootCmd.PersistentFlags().BoolP(commands.FlagVerbose, "v", false, "debug logging")

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "checkstat %s\n", version.String())
		},
	}
}
