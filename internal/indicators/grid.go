package indicators

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// DefaultResolution is the cell size in degrees of the bundled dataset.
const DefaultResolution = 0.5

type cellKey struct {
	lat, lon int64
}

// Grid is an in-memory gridded indicator dataset. Each row of the source file
// is the centre of one cell; a coordinate resolves to the cell whose bounds
// contain it. Cells absent from the file (oceans, uncovered areas) have no value.
type Grid struct {
	resolution float64
	cells      map[cellKey][]*float64 // values ordered like Timeframes
}

// LoadGrid reads a CSV dataset from path. See ReadGrid for the format.
func LoadGrid(path string, resolution float64) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open indicator dataset: %w", err)
	}
	defer f.Close()

	g, err := ReadGrid(f, resolution)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// ReadGrid parses a CSV dataset. The header must name a latitude and a
// longitude column and one column per timeframe, e.g.
//
//	latitude,longitude,2030,2050,2070,2090
//	48.75,2.25,24.1,25.0,26.2,27.9
//
// Empty, NA and NaN cells mean the value is unavailable.
func ReadGrid(r io.Reader, resolution float64) (*Grid, error) {
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return nil, fmt.Errorf("invalid grid resolution %v", resolution)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty indicator dataset")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	latCol, lonCol := -1, -1
	tfCols := make([]int, len(Timeframes))
	for i := range tfCols {
		tfCols[i] = -1
	}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "latitude", "lat":
			latCol = i
		case "longitude", "lon":
			lonCol = i
		default:
			for j, tf := range Timeframes {
				if name == string(tf) {
					tfCols[j] = i
				}
			}
		}
	}
	if latCol < 0 || lonCol < 0 {
		return nil, errors.New("header must contain latitude and longitude columns")
	}
	for j, col := range tfCols {
		if col < 0 {
			return nil, fmt.Errorf("header is missing timeframe column %s", Timeframes[j])
		}
	}

	g := &Grid{
		resolution: resolution,
		cells:      make(map[cellKey][]*float64),
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(record[latCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid latitude %q", line, record[latCol])
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(record[lonCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid longitude %q", line, record[lonCol])
		}

		values := make([]*float64, len(Timeframes))
		for j, col := range tfCols {
			v, err := parseValue(record[col])
			if err != nil {
				return nil, fmt.Errorf("line %d: timeframe %s: %w", line, Timeframes[j], err)
			}
			values[j] = v
		}

		key := g.key(lat, lon)
		if _, dup := g.cells[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate cell for (%v, %v)", line, lat, lon)
		}
		g.cells[key] = values
	}

	return g, nil
}

func parseValue(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid value %q", s)
	}
	return &v, nil
}

// Len returns the number of cells in the grid.
func (g *Grid) Len() int {
	return len(g.cells)
}

func (g *Grid) key(lat, lon float64) cellKey {
	if lat >= 90 {
		lat = 90 - g.resolution/2
	}
	return cellKey{
		lat: int64(math.Floor(lat / g.resolution)),
		lon: int64(math.Floor(normalizeLongitude(lon) / g.resolution)),
	}
}

// normalizeLongitude maps lon into [-180, 180).
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// MeanTemperatureWarmestQuarter implements Source.
func (g *Grid) MeanTemperatureWarmestQuarter(_ context.Context, latitude, longitude float64, timeframe Timeframe) (*float64, error) {
	idx := -1
	for i, tf := range Timeframes {
		if tf == timeframe {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}

	values, ok := g.cells[g.key(latitude, longitude)]
	if !ok || values[idx] == nil {
		return nil, nil
	}
	v := *values[idx]
	return &v, nil
}
