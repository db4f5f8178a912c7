package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordPlan("Balanced", "ok")
	r.RecordPlan("Balanced", "ok")
	r.RecordPlan("Aggressive", "partial")
	r.RecordClassOutcome("stocks", "exp_tilt")
	r.RecordFallback("crypto", "degenerate")
	r.RecordError("insufficient_data")
	r.RecordForecast("gold", true)
	r.RecordForecast("gold", false)
	r.RecordLatency("plan", 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.plansTotal.WithLabelValues("Balanced", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.plansTotal.WithLabelValues("Aggressive", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.classOutcomes.WithLabelValues("stocks", "exp_tilt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacksTotal.WithLabelValues("crypto", "degenerate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.forecastsTotal.WithLabelValues("gold", "true")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}
