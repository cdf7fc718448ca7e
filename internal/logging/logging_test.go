package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger, closer, err := New(Config{Level: "debug", Format: FormatJSON}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug().Str("batch_id", "b-1").Msg("poll cycle complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "b-1", entry["batch_id"])
	assert.Equal(t, "poll cycle complete", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer

	logger, _, err := New(Config{Level: "warn", Format: FormatJSON}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_ConsoleToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gh-notifier.log")

	logger, closer, err := New(Config{Level: "info", File: path}, nil)
	require.NoError(t, err)

	logger.Info().Str("account", "default").Msg("poller starting")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "poller starting")
	assert.Contains(t, string(data), "account=default")
	assert.NotContains(t, string(data), "\x1b[", "file output has no colour codes")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, closer, err := New(Config{Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.NotNil(t, closer)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"trace", zerolog.TraceLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in, zerolog.InfoLevel))
		})
	}
}
