package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"climadex/internal/indicators"
	"climadex/internal/models"
	"climadex/internal/risk"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

type location struct {
	name      string
	latitude  float64
	longitude float64
}

var sampleLocations = []location{
	{"Paris", 48.8711312, 2.3462203},
	{"Dubai", 25.2048, 55.2708},
	{"Sydney", -33.8688, 151.2093},
	{"Mid-Atlantic", 30.0, -40.0},
}

// riskdemo prints the projected temperature evolution and the resulting
// risk category for a few locations, straight from an indicator dataset.
func main() {
	datasetPath := flag.String("indicators", "./data/indicators.csv", "Gridded indicator dataset (CSV)")
	resolution := flag.Float64("resolution", indicators.DefaultResolution, "Grid cell size in degrees")
	lat := flag.Float64("lat", 0, "Latitude of a single location to evaluate")
	lon := flag.Float64("lon", 0, "Longitude of a single location to evaluate")
	flag.Parse()

	logger := logging.NewStructuredLogger("climadex-riskdemo", "1.0.0", logging.WarnLevel)
	ctx := context.Background()

	grid, err := indicators.LoadGrid(*datasetPath, *resolution)
	if err != nil {
		logger.Error(ctx, "[DEMO_ERROR] Failed to load indicator dataset", logging.Fields{
			"path": *datasetPath,
		}, err)
		os.Exit(1)
	}

	evaluator := risk.NewEvaluator(grid, metrics.NewCollectorWithRegistry("climadex_demo", prometheus.NewRegistry()))

	locations := sampleLocations
	if isFlagSet("lat") || isFlagSet("lon") {
		if err := models.ValidateCoordinates(*lat, *lon); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid coordinates: %v\n", err)
			os.Exit(1)
		}
		locations = []location{{"Custom", *lat, *lon}}
	}

	fmt.Println(strings.Repeat("═", 64))
	fmt.Println("EVOLUTION OF TEMPERATURES (mean of the warmest quarter)")
	fmt.Println(strings.Repeat("═", 64))
	fmt.Printf("Dataset: %s (%d cells, %.2f° resolution)\n\n", *datasetPath, grid.Len(), *resolution)

	counts := map[models.TemperatureRisk]int{}

	for _, loc := range locations {
		fmt.Printf("%s (%.4f, %.4f)\n", loc.name, loc.latitude, loc.longitude)
		fmt.Println(strings.Repeat("─", 64))

		samples, err := evaluator.Temperatures(ctx, loc.latitude, loc.longitude)
		if err != nil {
			fmt.Printf("  lookup failed: %v\n\n", err)
			continue
		}

		for _, s := range samples {
			if s.Temperature == nil {
				fmt.Printf("  %s: no data\n", s.Year)
				continue
			}
			fmt.Printf("  %s: %.2f°C\n", s.Year, *s.Temperature)
		}

		result := risk.Classify(samples[0].Temperature, samples[len(samples)-1].Temperature)
		counts[result]++
		fmt.Printf("  Temperature risk: %s\n\n", result)
	}

	fmt.Println(strings.Repeat("═", 64))
	fmt.Printf("High: %d | Low: %d | Undefined: %d\n",
		counts[models.RiskHigh], counts[models.RiskLow], counts[models.RiskUndefined])
	fmt.Printf("High means > %.1f°C in %s and more than %.1f°C warming by %s\n",
		risk.HighTemperatureThreshold, indicators.Timeframes[0],
		risk.WarmingDeltaThreshold, indicators.Timeframes[len(indicators.Timeframes)-1])
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
