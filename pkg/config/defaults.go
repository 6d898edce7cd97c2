package config

import "time"

// Server defaults.
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8081
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
)

// Diagnostics defaults.
const (
	DefaultDiagnosticsEnabled = true
	DefaultDiagnosticsAddr    = "127.0.0.1:9464"
)

// Tracker defaults.
const (
	DefaultHistorySize = 10
)

// Document cache defaults.
const (
	DefaultCacheTTL        = time.Second
	DefaultCacheMaxEntries = 1024
)

// Simulation defaults.
const (
	DefaultSimulateEnabled        = false
	DefaultSimulateJobID          = "wordcount"
	DefaultSimulateInterval       = 2 * time.Second
	DefaultSimulateFailureRate    = 0.1
	DefaultSimulateSavepointEvery = 5
	DefaultSimulateRestoreOnStart = false
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Client defaults.
const (
	DefaultClientURL     = "http://127.0.0.1:8081"
	DefaultClientTimeout = 10 * time.Second
)

// Telemetry defaults.
const (
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
)
