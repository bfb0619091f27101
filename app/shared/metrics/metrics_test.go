package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg, "keyquest")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOperationAttempt(ctx, "Record", "LedgerService")
	m.RecordOperationAttempt(ctx, "Record", "LedgerService")
	m.RecordOperationSuccess(ctx, "Record", "LedgerService")
	m.RecordOperationFailure(ctx, "Record", "LedgerService")
	m.RecordOperationDuration(ctx, "Record", "LedgerService", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("Record", "LedgerService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.successes.WithLabelValues("Record", "LedgerService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("Record", "LedgerService")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNewPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMetrics(reg, "keyquest")
	require.NoError(t, err)

	_, err = NewPrometheusMetrics(reg, "keyquest")
	assert.Error(t, err)
}
