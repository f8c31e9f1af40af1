package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authflow/pkg/logger"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() { logger.Replace(nil) })

	cfg := &Config{Server: ServerConfig{LogLevel: "debug"}}
	require.NoError(t, ConfigureLogging(cfg))

	cfg = &Config{Server: ServerConfig{Environment: "production"}}
	require.NoError(t, ConfigureLogging(cfg))
}
