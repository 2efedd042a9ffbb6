// Package risk derives a factory's temperature risk from projected
// warmest-quarter temperatures.
package risk

import (
	"context"
	"fmt"
	"time"

	"climadex/internal/indicators"
	"climadex/internal/models"
	"climadex/pkg/metrics"
)

const (
	// HighTemperatureThreshold is the nearest-horizon temperature (°C) that
	// must be exceeded for a High rating.
	HighTemperatureThreshold = 28.0
	// WarmingDeltaThreshold is the warming (°C) between the nearest and the
	// furthest horizon that must be exceeded for a High rating.
	WarmingDeltaThreshold = 2.0
)

// Classify maps the nearest and furthest horizon temperatures to a risk
// category. Either value being nil yields Undefined.
func Classify(nearest, furthest *float64) models.TemperatureRisk {
	if nearest == nil || furthest == nil {
		return models.RiskUndefined
	}

	delta := *furthest - *nearest
	if *nearest > HighTemperatureThreshold && delta > WarmingDeltaThreshold {
		return models.RiskHigh
	}
	return models.RiskLow
}

// Evaluator computes temperature series and risk categories from an indicator source.
type Evaluator struct {
	source  indicators.Source
	metrics *metrics.Collector
}

// NewEvaluator creates an evaluator backed by source.
func NewEvaluator(source indicators.Source, metricsCollector *metrics.Collector) *Evaluator {
	return &Evaluator{
		source:  source,
		metrics: metricsCollector,
	}
}

// Temperatures returns one sample per timeframe, in timeframe order. Every
// timeframe is looked up; nothing is cached between calls.
func (e *Evaluator) Temperatures(ctx context.Context, latitude, longitude float64) ([]models.TemperatureSample, error) {
	start := time.Now()
	defer func() {
		e.metrics.IndicatorLookupDuration.Observe(time.Since(start).Seconds())
	}()

	samples := make([]models.TemperatureSample, 0, len(indicators.Timeframes))
	for _, tf := range indicators.Timeframes {
		v, err := e.source.MeanTemperatureWarmestQuarter(ctx, latitude, longitude, tf)
		if err != nil {
			e.metrics.IndicatorErrorsTotal.Inc()
			return nil, fmt.Errorf("indicator lookup for %s at (%v, %v): %w", tf, latitude, longitude, err)
		}
		samples = append(samples, models.TemperatureSample{Year: string(tf), Temperature: v})
	}

	return samples, nil
}

// Evaluate returns the risk category at the given coordinates.
func (e *Evaluator) Evaluate(ctx context.Context, latitude, longitude float64) (models.TemperatureRisk, error) {
	samples, err := e.Temperatures(ctx, latitude, longitude)
	if err != nil {
		return models.RiskUndefined, err
	}

	result := models.RiskUndefined
	if len(samples) > 0 {
		result = Classify(samples[0].Temperature, samples[len(samples)-1].Temperature)
	}

	e.metrics.RecordRiskEvaluation(string(result))
	return result, nil
}
