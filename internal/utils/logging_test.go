package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogFormat(t *testing.T) {
	f, err := ParseLogFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, LogFormatJSON, f)

	f, err = ParseLogFormat("")
	require.NoError(t, err)
	assert.Equal(t, LogFormatText, f)

	_, err = ParseLogFormat("xml")
	assert.Error(t, err)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewLogger(&buf, slog.LevelInfo, LogFormatJSON), "gateway")

	logger.Debug("hidden")
	logger.Info("request_sent", "model", "openai/gpt-5")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request_sent", entry["msg"])
	assert.Equal(t, "gateway", entry["component"])
	assert.Equal(t, "openai/gpt-5", entry["model"])
}

func TestNewLogger_TextLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug, LogFormatText)

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
