// Package commands implements the checkstat CLI commands.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/checkstat/pkg/config"
	"github.com/Sumatoshi-tech/checkstat/pkg/observability"
	"github.com/Sumatoshi-tech/checkstat/pkg/version"
)

// Persistent flag names defined on the root command.
const (
	FlagConfig  = "config"
	FlagVerbose = "verbose"
)

// Client flag names shared by stats, plot and mcp.
const (
	flagURL     = "url"
	flagJob     = "job"
	flagTimeout = "timeout"
)

// loadSettings loads the configuration named by the --config flag, if the
// command has one, and raises the log level to debug on --verbose.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	var path string

	if flag := cmd.Flag(FlagConfig); flag != nil {
		path = flag.Value.String()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if flag := cmd.Flag(FlagVerbose); flag != nil && flag.Value.String() == "true" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}

// applyClientFlags overrides the client section with explicitly set flags.
func applyClientFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed(flagURL) {
		cfg.Client.URL, _ = cmd.Flags().GetString(flagURL)
	}

	if cmd.Flags().Changed(flagTimeout) {
		cfg.Client.Timeout, _ = cmd.Flags().GetDuration(flagTimeout)
	}
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagURL, config.DefaultClientURL, "base URL of the checkstat server")
	cmd.Flags().Duration(flagTimeout, config.DefaultClientTimeout, "request timeout")
}

// initObservability builds telemetry providers for mode from cfg and installs
// the logger as the slog default.
func initObservability(cfg *config.Config, mode observability.AppMode, readers ...sdkmetric.Reader) (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.Environment = os.Getenv("CHECKSTAT_ENV")
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = observability.ParseLogLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.JSON || mode == observability.ModeMCP
	obsCfg.DebugTrace = obsCfg.LogLevel == slog.LevelDebug
	obsCfg.MetricReaders = readers

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, err
	}

	slog.SetDefault(providers.Logger)

	return providers, nil
}

func shutdownObservability(providers observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}
