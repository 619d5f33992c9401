package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10
	DefaultBurst     = 20

	DefaultSyncInterval  = 5 * time.Minute
	DefaultCycleTimeout  = 2 * time.Minute
	DefaultProbeInterval = 30 * time.Second

	DefaultRetryBaseDelay   = 5 * time.Second
	DefaultRetryMaxDelay    = 15 * time.Minute
	DefaultRetryMaxAttempts = 1

	EngineBadger = "badger"
	EngineMemory = "memory"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultMetricsAddr     = "127.0.0.1:9464"
	DefaultShutdownTimeout = 10 * time.Second
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Remote: RemoteSection{
			Timeout:   DefaultTimeout,
			RateLimit: DefaultRateLimit,
			Burst:     DefaultBurst,
		},
		Sync: SyncSection{
			Interval:      DefaultSyncInterval,
			CycleTimeout:  DefaultCycleTimeout,
			ProbeInterval: DefaultProbeInterval,
			Retry: RetrySection{
				BaseDelay:   DefaultRetryBaseDelay,
				MaxDelay:    DefaultRetryMaxDelay,
				MaxAttempts: DefaultRetryMaxAttempts,
			},
		},
		Storage: StorageSection{
			Engine:     EngineBadger,
			DataDir:    DefaultDataDir(),
			SyncWrites: true,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Agent: AgentSection{
			MetricsAddr:     DefaultMetricsAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
	}
}

// DefaultDir returns the per-user SessBox directory.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sessbox")
	}
	return ".sessbox"
}

// DefaultDataDir returns the default Badger directory.
func DefaultDataDir() string {
	return filepath.Join(DefaultDir(), "data")
}

// DefaultConfigFile returns the default configuration file path.
func DefaultConfigFile() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}
