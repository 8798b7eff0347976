package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zonetrends/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNew_ConsoleFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(config.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Info("summary_built", "account", "alice")
	logger.Warn("zone_fetch_failed", "activity_id", "42")

	out := buf.String()
	require.NotContains(t, out, "summary_built")
	require.Contains(t, out, "zone_fetch_failed")
	require.Contains(t, out, "activity_id=42")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "zonetrends.log")
	var console bytes.Buffer

	logger, closeFn, err := New(config.LogConfig{Level: "debug", File: path}, &console)
	require.NoError(t, err)
	logger.Debug("cache_miss", "activity_id", "7")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "cache_miss")
	require.Empty(t, console.String())
}

func TestNew_NilConsoleDiscards(t *testing.T) {
	logger, closeFn, err := New(config.LogConfig{}, nil)
	require.NoError(t, err)
	defer closeFn()

	logger.Info("ignored")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"}, nil)
	require.Error(t, err)
}
