package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Options{JSON: true})
	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "test").Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Contains(t, entry, "time")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("", true))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("", false))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARN", true))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("loud", false))
}

func TestConsoleOutputInDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Options{Debug: true})
	logger.Debug().Msg("starting")
	assert.Contains(t, buf.String(), "starting")
	assert.False(t, json.Valid(buf.Bytes()))
}
