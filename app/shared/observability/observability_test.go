package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	obs, err := New(Config{Environment: "test", LogLevel: "warn"}, &buf)
	require.NoError(t, err)

	obs.Logger.Info("hidden")
	obs.Logger.Warn("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "keyquest", line["service"])
	assert.Equal(t, "test", line["environment"])

	obs.Metrics.RecordOperationAttempt(context.Background(), "Record", "LedgerService")
	families, err := obs.Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["keyquest_operation_attempts_total"])
	assert.True(t, names["go_goroutines"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewNoop(t *testing.T) {
	obs := NewNoop()
	assert.NotNil(t, obs.Logger)
	assert.NotNil(t, obs.Tracer)
	assert.Nil(t, obs.HTTPMetrics)
}
