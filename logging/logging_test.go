package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfa/chat-tui/config"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestSetup_WritesJSONToProfileFile(t *testing.T) {
	restoreDefault(t)
	dir := t.TempDir()

	logger, closer, err := Setup(config.LogConfig{Level: "debug", Format: "json", File: "logs/app.log"}, dir)
	require.NoError(t, err)

	logger.With("component", "engine").Debug("frame dropped", "conversation_id", "7")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "logs", "app.log"))
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "frame dropped", rec["msg"])
	assert.Equal(t, "engine", rec["component"])
	assert.Equal(t, "7", rec["conversation_id"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Same(t, logger.Handler(), slog.Default().Handler())
}

func TestSetup_LevelFilters(t *testing.T) {
	restoreDefault(t)
	dir := t.TempDir()

	logger, closer, err := Setup(config.LogConfig{Level: "warn", File: "x.log"}, dir)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "x.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "msg=shown")
}

func TestSetup_Errors(t *testing.T) {
	restoreDefault(t)

	_, _, err := Setup(config.LogConfig{Level: "loud"}, t.TempDir())
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = Setup(config.LogConfig{Format: "xml", File: config.LogToStderr}, t.TempDir())
	assert.ErrorContains(t, err, "invalid log format")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
