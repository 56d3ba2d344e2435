package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONUsesShortKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, Options{Level: "info", Format: "json"})
	require.NoError(t, err)

	NewComponentLogger(logger, "engine").Info("saved", Args(Int("items", 3))...)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "engine", line[FieldComponent])
	assert.EqualValues(t, 3, line["items"])
	assert.Contains(t, line, "ts")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, Options{Format: "xml"})
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
