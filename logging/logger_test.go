package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapter_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(Config{Level: "debug", Output: &buf})
	require.NoError(t, err)

	l.Info("engine.node.enter", "node", "primary", "depth", 0, "err", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine.node.enter", line["message"])
	assert.Equal(t, "primary", line["node"])
	assert.Equal(t, float64(0), line["depth"])
	assert.Equal(t, "boom", line["err"])
	assert.Equal(t, "info", line["level"])
}

func TestZerologAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestRedactor(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(Config{Output: &buf, Redact: true})
	require.NoError(t, err)

	l.Info("verification.confirm", "code", "123456", "key", "sk-abcdefghijklmnopqrstuvwxyz")

	assert.NotContains(t, buf.String(), "123456")
	assert.NotContains(t, buf.String(), "sk-abcdefghijklmnopqrstuvwxyz")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
}
