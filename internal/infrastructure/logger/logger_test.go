package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "json to stdout",
			cfg:  &Config{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name: "console to stderr",
			cfg:  &Config{Level: "debug", Format: "console", Output: "stderr"},
		},
		{
			name: "defaults for empty fields",
			cfg:  &Config{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("test message")
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, Sync(logger))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to file")
}

func TestNew_UnwritableFileFallsBack(t *testing.T) {
	logger, err := New(&Config{Level: "info", Output: filepath.Join(t.TempDir(), "missing", "app.log")})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("still logs")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNew_LevelFiltersOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(&Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("filtered out")
	logger.Warn("kept")
	require.NoError(t, Sync(logger))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "filtered out")
	assert.Contains(t, string(content), "kept")
}

func TestNew_CustomTimeFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(&Config{Level: "info", Format: "json", Output: path, TimeFormat: "2006-01-02"})
	require.NoError(t, err)

	logger.Info("dated")
	require.NoError(t, Sync(logger))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `"time":"\d{4}-\d{2}-\d{2}"`, string(content))
}
