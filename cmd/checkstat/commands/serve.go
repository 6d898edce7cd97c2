package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
	"github.com/Sumatoshi-tech/checkstat/internal/jobs"
	internalobs "github.com/Sumatoshi-tech/checkstat/internal/observability"
	"github.com/Sumatoshi-tech/checkstat/internal/simulate"
	"github.com/Sumatoshi-tech/checkstat/pkg/checkpoint"
	"github.com/Sumatoshi-tech/checkstat/pkg/config"
	"github.com/Sumatoshi-tech/checkstat/pkg/observability"
)

const (
	flagHost            = "host"
	flagPort            = "port"
	flagSimulate        = "simulate"
	flagInterval        = "interval"
	flagFailureRate     = "failure-rate"
	flagSavepointEvery  = "savepoint-every"
	flagRestoreOnStart  = "restore-on-start"
	flagHistorySize     = "history-size"
	flagCacheTTL        = "cache-ttl"
	flagDiagnosticsAddr = "diagnostics-addr"
	flagDisabledJobs    = "disabled-job"

	serveShutdownTimeout = 10 * time.Second
)

// errNotServing is reported by the readiness check until the listener is up.
var errNotServing = errors.New("statistics server is not serving yet")

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var disabledJobs []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checkpoint statistics server",
		Long: `Serve checkpoint statistics over HTTP:

  GET /jobs                      list jobs and whether checkpointing is enabled
  GET /jobs/{jobid}/checkpoints  checkpoint statistics of a job

With --simulate a synthetic checkpoint coordinator drives a tracker for one job.
Health, readiness and Prometheus metrics are served on the diagnostics address.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			err = applyServeFlags(cmd, cfg)
			if err != nil {
				return err
			}

			return runServe(cmd.Context(), cfg, disabledJobs)
		},
	}

	flags := cmd.Flags()
	flags.String(flagHost, config.DefaultHost, "listen host")
	flags.Int(flagPort, config.DefaultPort, "listen port")
	flags.Bool(flagSimulate, config.DefaultSimulateEnabled, "drive a simulated job")
	flags.String(flagJob, config.DefaultSimulateJobID, "id of the simulated job")
	flags.Duration(flagInterval, config.DefaultSimulateInterval, "checkpoint interval of the simulated job")
	flags.Float64(flagFailureRate, config.DefaultSimulateFailureRate, "probability that a simulated checkpoint fails")
	flags.Int(flagSavepointEvery, config.DefaultSimulateSavepointEvery, "make every n-th simulated checkpoint a savepoint (0 disables)")
	flags.Bool(flagRestoreOnStart, config.DefaultSimulateRestoreOnStart, "report a restore before the first simulated checkpoint")
	flags.Int(flagHistorySize, config.DefaultHistorySize, "number of checkpoints kept in the history")
	flags.Duration(flagCacheTTL, config.DefaultCacheTTL, "statistics document cache TTL (0 disables)")
	flags.String(flagDiagnosticsAddr, config.DefaultDiagnosticsAddr, "diagnostics listen address (empty disables)")
	flags.StringSliceVar(&disabledJobs, flagDisabledJobs, nil, "register a job with checkpointing disabled (repeatable)")

	return cmd
}

// applyServeFlags overrides cfg with explicitly set flags and revalidates it.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed(flagHost) {
		cfg.Server.Host, _ = flags.GetString(flagHost)
	}

	if flags.Changed(flagPort) {
		cfg.Server.Port, _ = flags.GetInt(flagPort)
	}

	if flags.Changed(flagSimulate) {
		cfg.Simulate.Enabled, _ = flags.GetBool(flagSimulate)
	}

	if flags.Changed(flagJob) {
		cfg.Simulate.JobID, _ = flags.GetString(flagJob)
	}

	if flags.Changed(flagInterval) {
		cfg.Simulate.Interval, _ = flags.GetDuration(flagInterval)
	}

	if flags.Changed(flagFailureRate) {
		cfg.Simulate.FailureRate, _ = flags.GetFloat64(flagFailureRate)
	}

	if flags.Changed(flagSavepointEvery) {
		cfg.Simulate.SavepointEvery, _ = flags.GetInt(flagSavepointEvery)
	}

	if flags.Changed(flagRestoreOnStart) {
		cfg.Simulate.RestoreOnStart, _ = flags.GetBool(flagRestoreOnStart)
	}

	if flags.Changed(flagHistorySize) {
		cfg.Tracker.HistorySize, _ = flags.GetInt(flagHistorySize)
	}

	if flags.Changed(flagCacheTTL) {
		cfg.Cache.TTL, _ = flags.GetDuration(flagCacheTTL)
	}

	if flags.Changed(flagDiagnosticsAddr) {
		cfg.Diagnostics.Addr, _ = flags.GetString(flagDiagnosticsAddr)
		cfg.Diagnostics.Enabled = cfg.Diagnostics.Addr != ""
	}

	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	return nil
}

// serveRuntime is the wired statistics service, ready to be served.
type serveRuntime struct {
	registry    *jobs.Registry
	documents   *api.Handler
	handler     http.Handler
	coordinator *simulate.Coordinator
	logger      *slog.Logger
}

// newServeRuntime builds the registry, the simulated job, the HTTP handler
// chain and the telemetry instruments over providers.
func newServeRuntime(cfg *config.Config, providers observability.Providers, disabledJobs []string) (*serveRuntime, error) {
	logger := providers.Logger
	registry := jobs.NewRegistry()

	for _, jobID := range disabledJobs {
		err := registry.Register(jobID, nil)
		if err != nil {
			return nil, err
		}
	}

	checkpointMetrics, err := internalobs.NewCheckpointMetrics(providers.Meter, registry)
	if err != nil {
		return nil, fmt.Errorf("checkpoint metrics: %w", err)
	}

	_, err = internalobs.NewRuntimeMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("runtime metrics: %w", err)
	}

	rt := &serveRuntime{registry: registry, logger: logger}

	if cfg.Simulate.Enabled {
		rt.coordinator, err = newSimulatedJob(cfg, registry, checkpointMetrics, logger)
		if err != nil {
			return nil, err
		}
	}

	rt.documents = api.NewHandler(registry,
		api.WithCacheTTL(cfg.Cache.TTL, cfg.Cache.MaxEntries),
		api.WithHandlerLogger(logger),
	)

	err = observability.RegisterCacheMetrics(providers.Meter, map[string]observability.CacheStatsProvider{
		"documents": rt.documents,
	})
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("request metrics: %w", err)
	}

	rt.handler = observability.HTTPMiddleware(providers.Tracer,
		observability.HTTPMetricsMiddleware(red, rt.documents.Routes()))

	return rt, nil
}

func newSimulatedJob(
	cfg *config.Config, registry *jobs.Registry, observer simulate.Observer, logger *slog.Logger,
) (*simulate.Coordinator, error) {
	tracker := checkpoint.NewTracker(
		checkpoint.WithHistorySize(cfg.Tracker.HistorySize),
		checkpoint.WithLogger(logger),
	)

	err := registry.Register(cfg.Simulate.JobID, tracker)
	if err != nil {
		return nil, err
	}

	simCfg := simulate.Config{
		JobID:          cfg.Simulate.JobID,
		Interval:       cfg.Simulate.Interval,
		FailureRate:    cfg.Simulate.FailureRate,
		SavepointEvery: cfg.Simulate.SavepointEvery,
		RestoreOnStart: cfg.Simulate.RestoreOnStart,
		Seed:           uint64(time.Now().UnixNano()), //nolint:gosec // seed only, sign irrelevant
	}

	coordinator, err := simulate.New(tracker, simCfg,
		simulate.WithLogger(logger),
		simulate.WithObserver(observer),
	)
	if err != nil {
		return nil, fmt.Errorf("simulated job: %w", err)
	}

	return coordinator, nil
}

// serve runs the HTTP server on listener and the simulated job, if any,
// until ctx is done or one of them fails.
func (rt *serveRuntime) serve(ctx context.Context, listener net.Listener, cfg config.ServerConfig, ready *atomic.Bool) error {
	srv := &http.Server{
		Handler:           rt.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		rt.logger.InfoContext(groupCtx, "statistics server listening", "addr", listener.Addr().String())

		if ready != nil {
			ready.Store(true)
		}

		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("statistics server: %w", err)
		}

		return nil
	})

	if rt.coordinator != nil {
		group.Go(func() error {
			return rt.coordinator.Run(groupCtx)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()

		if ready != nil {
			ready.Store(false)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serveShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown statistics server: %w", err)
		}

		rt.logger.InfoContext(shutdownCtx, "statistics server stopped")

		return nil
	})

	return group.Wait()
}

func runServe(ctx context.Context, cfg *config.Config, disabledJobs []string) error {
	var (
		metricsHandler http.Handler
		readers        []sdkmetric.Reader
	)

	if cfg.Diagnostics.Enabled {
		handler, reader, err := internalobs.NewPrometheusExporter()
		if err != nil {
			return err
		}

		metricsHandler = handler
		readers = append(readers, reader)
	}

	providers, err := initObservability(cfg, observability.ModeServe, readers...)
	if err != nil {
		return err
	}

	defer shutdownObservability(providers)

	rt, err := newServeRuntime(cfg, providers, disabledJobs)
	if err != nil {
		return err
	}

	var ready atomic.Bool

	if cfg.Diagnostics.Enabled {
		diag, diagErr := internalobs.NewDiagnosticsServer(ctx, cfg.Diagnostics.Addr, metricsHandler,
			func(_ context.Context) error {
				if !ready.Load() {
					return errNotServing
				}

				return nil
			})
		if diagErr != nil {
			return diagErr
		}

		providers.Logger.InfoContext(ctx, "diagnostics server listening", "addr", diag.Addr())

		defer func() {
			closeErr := diag.Close(context.WithoutCancel(ctx))
			if closeErr != nil {
				providers.Logger.Warn("diagnostics shutdown failed", "error", closeErr)
			}
		}()
	}

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr(), err)
	}

	return rt.serve(ctx, listener, cfg.Server, &ready)
}
