package config

import "time"

// Config is the root configuration.
type Config struct {
	Remote   RemoteSection   `koanf:"remote" yaml:"remote"`
	Sync     SyncSection     `koanf:"sync" yaml:"sync"`
	Storage  StorageSection  `koanf:"storage" yaml:"storage"`
	Security SecuritySection `koanf:"security" yaml:"security"`
	Log      LogSection      `koanf:"log" yaml:"log"`
	Agent    AgentSection    `koanf:"agent" yaml:"agent"`
}

// RemoteSection configures the remote session server.
type RemoteSection struct {
	// BaseURL of the server. Empty runs SessBox local-only.
	BaseURL string `koanf:"base_url" yaml:"base_url"`

	// Token is the bearer credential. TokenFile is read on every request
	// when Token is empty, so rotated tokens are picked up.
	Token     string `koanf:"token" yaml:"token"`
	TokenFile string `koanf:"token_file" yaml:"token_file"`

	Timeout   time.Duration `koanf:"timeout" yaml:"timeout"`
	RateLimit float64       `koanf:"rate_limit" yaml:"rate_limit"`
	Burst     int           `koanf:"burst" yaml:"burst"`
	TLSCAFile string        `koanf:"tls_ca_file" yaml:"tls_ca_file"`
}

// SyncSection configures the sync engine.
type SyncSection struct {
	Interval      time.Duration `koanf:"interval" yaml:"interval"`
	CycleTimeout  time.Duration `koanf:"cycle_timeout" yaml:"cycle_timeout"`
	ProbeInterval time.Duration `koanf:"probe_interval" yaml:"probe_interval"`
	Retry         RetrySection  `koanf:"retry" yaml:"retry"`
}

// RetrySection bounds retries of failed pending operations.
type RetrySection struct {
	BaseDelay   time.Duration `koanf:"base_delay" yaml:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay" yaml:"max_delay"`
	MaxAttempts int           `koanf:"max_attempts" yaml:"max_attempts"`
}

// StorageSection configures the local store.
type StorageSection struct {
	// Engine is "badger" or "memory".
	Engine     string `koanf:"engine" yaml:"engine"`
	DataDir    string `koanf:"data_dir" yaml:"data_dir"`
	SyncWrites bool   `koanf:"sync_writes" yaml:"sync_writes"`
}

// SecuritySection configures at-rest encryption.
type SecuritySection struct {
	// Passphrase seals every stored value when set.
	Passphrase string `koanf:"passphrase" yaml:"passphrase"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// AgentSection configures sessbox-agent.
type AgentSection struct {
	// MetricsAddr serves /metrics and /healthz. Empty disables it.
	MetricsAddr     string        `koanf:"metrics_addr" yaml:"metrics_addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}
