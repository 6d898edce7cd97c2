// Package config provides configuration loading and validation for checkstat.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidTimeout     = errors.New("timeout must not be negative")
	ErrInvalidHistorySize = errors.New("tracker history size must not be negative")
	ErrInvalidCache       = errors.New("cache settings must not be negative")
	ErrInvalidSimulation  = errors.New("invalid simulation settings")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be within [0, 1]")
	ErrEmptyDiagAddr      = errors.New("diagnostics address must be set when enabled")
)

const (
	maxPort = 65535

	configName = ".checkstat"
	envPrefix  = "CHECKSTAT"
)

// Config holds all configuration for checkstat.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Tracker     TrackerConfig     `mapstructure:"tracker"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Simulate    SimulateConfig    `mapstructure:"simulate"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Client      ClientConfig      `mapstructure:"client"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// ServerConfig holds the statistics HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Port         int           `mapstructure:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DiagnosticsConfig holds the health and metrics listener settings.
type DiagnosticsConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

// TrackerConfig holds checkpoint tracker settings.
type TrackerConfig struct {
	HistorySize int `mapstructure:"history_size"`
}

// CacheConfig holds the statistics document cache settings. A zero TTL disables the cache.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// SimulateConfig holds the synthetic checkpoint coordinator settings.
type SimulateConfig struct {
	JobID          string        `mapstructure:"job_id"`
	Interval       time.Duration `mapstructure:"interval"`
	FailureRate    float64       `mapstructure:"failure_rate"`
	SavepointEvery int           `mapstructure:"savepoint_every"`
	Enabled        bool          `mapstructure:"enabled"`
	RestoreOnStart bool          `mapstructure:"restore_on_start"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ClientConfig holds settings of the client commands.
type ClientConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches for .checkstat.yaml in the working directory
// and the home directory; a missing file is not an error in that case.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")

		home, homeErr := os.UserHomeDir()
		if homeErr == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("server.host", DefaultHost)
	viperCfg.SetDefault("server.port", DefaultPort)
	viperCfg.SetDefault("server.read_timeout", DefaultReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultWriteTimeout)
	viperCfg.SetDefault("server.idle_timeout", DefaultIdleTimeout)

	viperCfg.SetDefault("diagnostics.enabled", DefaultDiagnosticsEnabled)
	viperCfg.SetDefault("diagnostics.addr", DefaultDiagnosticsAddr)

	viperCfg.SetDefault("tracker.history_size", DefaultHistorySize)

	viperCfg.SetDefault("cache.ttl", DefaultCacheTTL)
	viperCfg.SetDefault("cache.max_entries", DefaultCacheMaxEntries)

	viperCfg.SetDefault("simulate.enabled", DefaultSimulateEnabled)
	viperCfg.SetDefault("simulate.job_id", DefaultSimulateJobID)
	viperCfg.SetDefault("simulate.interval", DefaultSimulateInterval)
	viperCfg.SetDefault("simulate.failure_rate", DefaultSimulateFailureRate)
	viperCfg.SetDefault("simulate.savepoint_every", DefaultSimulateSavepointEvery)
	viperCfg.SetDefault("simulate.restore_on_start", DefaultSimulateRestoreOnStart)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("client.url", DefaultClientURL)
	viperCfg.SetDefault("client.timeout", DefaultClientTimeout)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	for name, timeout := range map[string]time.Duration{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"server.idle_timeout":  c.Server.IdleTimeout,
		"client.timeout":       c.Client.Timeout,
	} {
		if timeout < 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidTimeout, name, timeout)
		}
	}

	if c.Diagnostics.Enabled && c.Diagnostics.Addr == "" {
		return ErrEmptyDiagAddr
	}

	if c.Tracker.HistorySize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHistorySize, c.Tracker.HistorySize)
	}

	if c.Cache.TTL < 0 || c.Cache.MaxEntries < 0 {
		return fmt.Errorf("%w: ttl=%s max_entries=%d", ErrInvalidCache, c.Cache.TTL, c.Cache.MaxEntries)
	}

	err := c.validateSimulate()
	if err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

func (c *Config) validateSimulate() error {
	sim := c.Simulate
	if !sim.Enabled {
		return nil
	}

	switch {
	case sim.JobID == "":
		return fmt.Errorf("%w: empty job id", ErrInvalidSimulation)
	case sim.Interval <= 0:
		return fmt.Errorf("%w: interval %s", ErrInvalidSimulation, sim.Interval)
	case sim.FailureRate < 0 || sim.FailureRate > 1:
		return fmt.Errorf("%w: failure rate %v", ErrInvalidSimulation, sim.FailureRate)
	case sim.SavepointEvery < 0:
		return fmt.Errorf("%w: savepoint period %d", ErrInvalidSimulation, sim.SavepointEvery)
	}

	return nil
}
