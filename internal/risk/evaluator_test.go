package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climadex/internal/indicators"
	"climadex/internal/models"
	"climadex/pkg/metrics"
)

func ptr(v float64) *float64 { return &v }

// seriesSource returns the same per-timeframe values for every coordinate.
type seriesSource struct {
	values map[indicators.Timeframe]*float64
	err    error
	calls  int
}

func (s *seriesSource) MeanTemperatureWarmestQuarter(_ context.Context, _, _ float64, tf indicators.Timeframe) (*float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.values[tf], nil
}

func newSeries(nearest, furthest *float64) *seriesSource {
	return &seriesSource{values: map[indicators.Timeframe]*float64{
		"2030": nearest,
		"2050": ptr(30),
		"2070": ptr(31),
		"2090": furthest,
	}}
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollectorWithRegistry("climadex_test", prometheus.NewRegistry())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		nearest  *float64
		furthest *float64
		want     models.TemperatureRisk
	}{
		{"hot and warming", ptr(29), ptr(32), models.RiskHigh},
		{"not hot enough", ptr(25), ptr(32), models.RiskLow},
		{"hot but stable", ptr(30), ptr(31.5), models.RiskLow},
		{"exactly at temperature threshold", ptr(28), ptr(31), models.RiskLow},
		{"exactly at delta threshold", ptr(29), ptr(31), models.RiskLow},
		{"just over both thresholds", ptr(28.01), ptr(30.02), models.RiskHigh},
		{"cooling", ptr(35), ptr(30), models.RiskLow},
		{"nearest unavailable", nil, ptr(32), models.RiskUndefined},
		{"furthest unavailable", ptr(29), nil, models.RiskUndefined},
		{"both unavailable", nil, nil, models.RiskUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.nearest, tt.furthest))
		})
	}
}

func TestClassify_Property(t *testing.T) {
	// High iff nearest > 28 and furthest - nearest > 2, for available values.
	for nearest := 20.0; nearest <= 36.0; nearest += 0.5 {
		for delta := -3.0; delta <= 6.0; delta += 0.5 {
			furthest := nearest + delta
			got := Classify(ptr(nearest), ptr(furthest))
			want := models.RiskLow
			if nearest > 28.0 && furthest-nearest > 2.0 {
				want = models.RiskHigh
			}
			require.Equal(t, want, got, "nearest=%v furthest=%v", nearest, furthest)
		}
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		nearest  *float64
		furthest *float64
		want     models.TemperatureRisk
	}{
		{"paris synthetic high", ptr(29), ptr(32), models.RiskHigh},
		{"paris synthetic low", ptr(25), ptr(32), models.RiskLow},
		{"paris nearest missing", nil, ptr(32), models.RiskUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSeries(tt.nearest, tt.furthest)
			m := testMetrics()
			e := NewEvaluator(src, m)

			got, err := e.Evaluate(context.Background(), 48.87, 2.35)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(indicators.Timeframes), src.calls, "every timeframe is looked up")
			assert.Equal(t, 1.0, testutil.ToFloat64(m.RiskEvaluationsTotal.WithLabelValues(string(tt.want))))
		})
	}
}

func TestEvaluator_NoCachingAcrossEvaluations(t *testing.T) {
	src := newSeries(ptr(29), ptr(32))
	e := NewEvaluator(src, testMetrics())

	for i := 0; i < 3; i++ {
		_, err := e.Evaluate(context.Background(), 48.87, 2.35)
		require.NoError(t, err)
	}
	assert.Equal(t, 3*len(indicators.Timeframes), src.calls)
}

func TestEvaluator_SourceError(t *testing.T) {
	boom := errors.New("dataset unavailable")
	src := &seriesSource{err: boom}
	m := testMetrics()
	e := NewEvaluator(src, m)

	got, err := e.Evaluate(context.Background(), 1, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.RiskUndefined, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndicatorErrorsTotal))
}

func TestEvaluator_Temperatures(t *testing.T) {
	src := newSeries(ptr(29), nil)
	e := NewEvaluator(src, testMetrics())

	samples, err := e.Temperatures(context.Background(), 48.87, 2.35)
	require.NoError(t, err)
	require.Len(t, samples, 4)

	years := make([]string, len(samples))
	for i, s := range samples {
		years[i] = s.Year
	}
	assert.Equal(t, []string{"2030", "2050", "2070", "2090"}, years)
	assert.Equal(t, 29.0, *samples[0].Temperature)
	assert.Nil(t, samples[3].Temperature)
}
