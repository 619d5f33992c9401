package config

import "github.com/yndnr/sessbox-go/internal/telemetry/logger"

// Sanitize returns a copy of the config with secrets masked, for display
// and logging.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	if sanitized.Remote.Token != "" {
		sanitized.Remote.Token = logger.RedactToken(sanitized.Remote.Token)
	}
	if sanitized.Security.Passphrase != "" {
		sanitized.Security.Passphrase = "****"
	}

	return &sanitized
}
