package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestCollector_IndependentRegistries(t *testing.T) {
	// Two collectors on separate registries must not panic on registration.
	a := NewCollectorWithRegistry("climadex", prometheus.NewRegistry())
	b := NewCollectorWithRegistry("climadex", prometheus.NewRegistry())

	a.RecordRiskEvaluation("High")
	a.RecordRiskEvaluation("High")
	b.RecordRiskEvaluation("Low")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.RiskEvaluationsTotal.WithLabelValues("High")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RiskEvaluationsTotal.WithLabelValues("High")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.RiskEvaluationsTotal.WithLabelValues("Low")))
}

func TestCollector_RecordHelpers(t *testing.T) {
	c := NewCollectorWithRegistry("climadex", prometheus.NewRegistry())

	c.RecordAPIRequest("/factories", "GET", "200")
	c.RecordAPIError("not_found", "/factory/{id}")
	c.RecordDBError("exec_error")
	c.RecordImportError("parse_error")
	c.UpdateDBConnectionPool(1, 0, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/factories", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.APIErrorsTotal.WithLabelValues("not_found", "/factory/{id}")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBErrorsTotal.WithLabelValues("exec_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ImportErrorsTotal.WithLabelValues("parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBConnectionPool.WithLabelValues("in_use")))
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := NewCollectorWithRegistry("climadex", prometheus.NewRegistry())
	timer := c.NewTimer(c.RecomputeDuration)
	assert.GreaterOrEqual(t, timer.Elapsed().Nanoseconds(), int64(0))
	assert.Equal(t, uint64(0), histogramCount(t, c.RecomputeDuration))

	d := timer.ObserveDuration()
	assert.GreaterOrEqual(t, d.Nanoseconds(), int64(0))
	assert.Equal(t, uint64(1), histogramCount(t, c.RecomputeDuration))

	// A nil observer only measures.
	assert.GreaterOrEqual(t, c.NewTimer(nil).ObserveDuration().Nanoseconds(), int64(0))
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
