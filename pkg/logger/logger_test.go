package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLevels(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, Init(Options{Level: "debug"}))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init(Options{Level: "chatty", Development: true, Service: "authflow"}))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel), "unknown level falls back to info")
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))

	SetLevel("error")
	require.False(t, Logger().Core().Enabled(zap.WarnLevel))
	SetLevel("info")
}

func TestHelpersUseGlobalLogger(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	Debug("debug message")
	Info("info message", zap.String("k", "v"))
	Warn("warn message")
	Error("error message")
	WithModule("auth").Info("module message")

	entries := recorded.All()
	require.Len(t, entries, 5)
	require.Equal(t, "v", entries[1].ContextMap()["k"])
	require.Equal(t, "auth", entries[4].ContextMap()["module"])
	require.Equal(t, zap.WarnLevel, entries[2].Level)
}

func TestReplaceNilRestoresNop(t *testing.T) {
	Replace(nil)
	require.False(t, Logger().Core().Enabled(zap.ErrorLevel))
}
