package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logging.ParseLevel(tt.in))
		})
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	l := logging.With("fetcher")
	l.Info().Str("dataset", "ratings").Msg("downloading")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetcher", line["component"])
	assert.Equal(t, "ratings", line["dataset"])
	assert.Equal(t, "downloading", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "error", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	logging.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	logging.Error().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}
