// Package indicators provides access to climate-projection indicators keyed by
// location and time horizon.
package indicators

import "context"

// Timeframe labels a projection horizon.
type Timeframe string

// Timeframes lists the projection horizons in order, nearest first.
var Timeframes = []Timeframe{"2030", "2050", "2070", "2090"}

// Source looks up the mean temperature of the warmest quarter (°C).
//
// A nil value with a nil error means the dataset has no value at the given
// coordinates, typically because they fall over the ocean or outside the
// covered area. An error means the lookup itself failed.
type Source interface {
	MeanTemperatureWarmestQuarter(ctx context.Context, latitude, longitude float64, timeframe Timeframe) (*float64, error)
}
