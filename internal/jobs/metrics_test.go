package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("collections:warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("collections:warmup").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("collections:warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("collections:warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("collections:warmup")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.Enqueued("collections:warmup", "cli")
	assert.NoError(t, m.Track("x").End(nil))
}

func TestEnqueuedCounter(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.Enqueued("collections:warmup", "change")
	m.Enqueued("collections:warmup", "change")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.enqueued.WithLabelValues("collections:warmup", "change")))
}
