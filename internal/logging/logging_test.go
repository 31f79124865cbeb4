package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("sync completed", "inserted", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sync completed", entry["msg"])
	assert.Equal(t, float64(3), entry["inserted"])
	assert.Contains(t, entry["time"], "Z")
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "warn", "text").Warn("lock busy", "holder", "abc")
	assert.Contains(t, buf.String(), "msg=\"lock busy\"")
	assert.Contains(t, buf.String(), "holder=abc")
}
