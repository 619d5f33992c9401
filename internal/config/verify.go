package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := verifyRemote(&cfg.Remote); err != nil {
		return err
	}
	if err := verifySync(&cfg.Sync); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyRemote(cfg *RemoteSection) error {
	if cfg.BaseURL != "" {
		raw := cfg.BaseURL
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return fmt.Errorf("remote.base_url %q is not a valid URL", cfg.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("remote.base_url scheme %q is not supported", u.Scheme)
		}
	}
	if cfg.Timeout <= 0 {
		return errors.New("remote.timeout must be positive")
	}
	if cfg.RateLimit < 0 {
		return errors.New("remote.rate_limit must not be negative")
	}
	return nil
}

func verifySync(cfg *SyncSection) error {
	if cfg.Interval <= 0 {
		return errors.New("sync.interval must be positive")
	}
	if cfg.CycleTimeout <= 0 {
		return errors.New("sync.cycle_timeout must be positive")
	}
	if cfg.ProbeInterval <= 0 {
		return errors.New("sync.probe_interval must be positive")
	}
	r := cfg.Retry
	if r.BaseDelay <= 0 || r.MaxDelay < r.BaseDelay {
		return errors.New("sync.retry.base_delay must be positive and not exceed sync.retry.max_delay")
	}
	if r.MaxAttempts < 1 {
		return errors.New("sync.retry.max_attempts must be at least 1")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case EngineBadger:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required")
		}
	case EngineMemory:
	default:
		return fmt.Errorf("storage.engine %q is not supported (badger, memory)", cfg.Engine)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not supported", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not supported (json, text)", cfg.Format)
	}
	return nil
}
