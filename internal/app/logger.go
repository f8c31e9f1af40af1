package app

import (
	"strings"

	"github.com/charlesng35/authflow/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level, defaulting to info.
// Non-production environments get the human readable development encoder.
func ConfigureLogging(cfg *Config) error {
	level := strings.TrimSpace(cfg.Server.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.Init(logger.Options{
		Level:       level,
		Development: !cfg.IsProduction(),
		Service:     "authflow",
	})
}
