package metrics_test

import (
	"testing"

	"github.com/pharmadocs/dmsd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_TransitionsTotalLabeled(t *testing.T) {
	metrics.TransitionsTotal.WithLabelValues("publish", "ok").Inc()
	got := testutil.ToFloat64(metrics.TransitionsTotal.WithLabelValues("publish", "ok"))
	assert.GreaterOrEqual(t, got, float64(1))
}

func TestMetrics_RegistryCollectsAll(t *testing.T) {
	r := metrics.Registry()
	families, err := r.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 5)
}
