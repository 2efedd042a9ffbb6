package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// TemperatureRisk is the risk category derived from projected warming at a
// factory's location.
type TemperatureRisk string

const (
	RiskLow       TemperatureRisk = "Low"
	RiskHigh      TemperatureRisk = "High"
	RiskUndefined TemperatureRisk = "Undefined"
)

// Valid reports whether r is one of the known categories.
func (r TemperatureRisk) Valid() bool {
	switch r {
	case RiskLow, RiskHigh, RiskUndefined:
		return true
	}
	return false
}

// ParseTemperatureRisk accepts a category name in any letter case and returns
// its canonical form.
func ParseTemperatureRisk(s string) (TemperatureRisk, error) {
	for _, r := range []TemperatureRisk{RiskLow, RiskHigh, RiskUndefined} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", &ValidationError{
		Field:   "risk",
		Value:   s,
		Message: "invalid risk, expected one of Low, High, Undefined",
	}
}

// Factory is a persisted factory row.
// TemperatureRisk is a cached value: it is written on creation and by a batch
// recompute, and TemperatureRiskUpdatedAt records when.
type Factory struct {
	ID                       int64           `json:"id" db:"id"`
	FactoryName              string          `json:"factoryName" db:"factory_name"`
	Address                  string          `json:"address" db:"address"`
	Country                  string          `json:"country" db:"country"`
	Latitude                 float64         `json:"latitude" db:"latitude"`
	Longitude                float64         `json:"longitude" db:"longitude"`
	YearlyRevenue            float64         `json:"yearlyRevenue" db:"yearly_revenue"`
	TemperatureRisk          TemperatureRisk `json:"temperatureRisk" db:"temperature_risk"`
	TemperatureRiskUpdatedAt *time.Time      `json:"temperatureRiskUpdatedAt,omitempty" db:"temperature_risk_updated_at"`
}

// FactoryLocation is the subset of a factory needed to recompute its risk.
type FactoryLocation struct {
	ID        int64   `db:"id"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
}

// TemperatureSample is the projected warmest-quarter mean temperature for one
// timeframe. Temperature is nil when the dataset has no value.
type TemperatureSample struct {
	Year        string   `json:"year"`
	Temperature *float64 `json:"temperature"`
}

// FactoriesPage is one page of a factory listing.
type FactoriesPage struct {
	Factories []*Factory `json:"factories"`
	HasMore   bool       `json:"hasMore"`
}

// Number decodes a JSON number or a numeric string. Clients post form values
// as strings, so both are accepted.
type Number struct {
	Value float64
	Set   bool
	Raw   string // non-empty when the input could not be parsed
}

// UnmarshalJSON implements json.Unmarshaler. It never fails: unparsable input
// is kept in Raw and reported by FactoryInput.Validate.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			n.Raw = s
			return nil
		}
		s = str
	}

	*n = ParseNumber(s)
	return nil
}

// ParseNumber parses a decimal string. Blank input leaves the Number unset;
// anything else that is not a finite number is kept in Raw.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{Raw: s}
	}
	return NewNumber(v)
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// NewNumber returns a set Number.
func NewNumber(v float64) Number {
	return Number{Value: v, Set: true}
}

// FactoryInput is the body of a factory creation request.
type FactoryInput struct {
	FactoryName   string `json:"factoryName"`
	Country       string `json:"country"`
	Address       string `json:"address"`
	Latitude      Number `json:"latitude"`
	Longitude     Number `json:"longitude"`
	YearlyRevenue Number `json:"yearlyRevenue"`
}

// Validate checks required fields. The first failing field is reported.
func (in *FactoryInput) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"factoryName", in.FactoryName},
		{"country", in.Country},
		{"address", in.Address},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: r.field + " is required"}
		}
	}

	if err := requireNumber("yearlyRevenue", in.YearlyRevenue); err != nil {
		return err
	}
	if in.YearlyRevenue.Value == 0 {
		return &ValidationError{Field: "yearlyRevenue", Value: "0", Message: "yearlyRevenue must be non-zero"}
	}

	if err := requireNumber("latitude", in.Latitude); err != nil {
		return err
	}
	if err := requireNumber("longitude", in.Longitude); err != nil {
		return err
	}

	return ValidateCoordinates(in.Latitude.Value, in.Longitude.Value)
}

func requireNumber(field string, n Number) error {
	if n.Raw != "" {
		return &ValidationError{Field: field, Value: n.Raw, Message: field + " must be a number"}
	}
	if !n.Set {
		return &ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ToFactory converts a validated input into a Factory without id or risk.
func (in *FactoryInput) ToFactory() *Factory {
	return &Factory{
		FactoryName:     strings.TrimSpace(in.FactoryName),
		Country:         strings.TrimSpace(in.Country),
		Address:         strings.TrimSpace(in.Address),
		Latitude:        in.Latitude.Value,
		Longitude:       in.Longitude.Value,
		YearlyRevenue:   in.YearlyRevenue.Value,
		TemperatureRisk: RiskUndefined,
	}
}

// ValidateCoordinates rejects latitudes outside [-90, 90] and longitudes
// outside [-180, 180].
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 {
		return &ValidationError{
			Field:   "latitude",
			Value:   strconv.FormatFloat(latitude, 'f', -1, 64),
			Message: "latitude out of range [-90, 90]",
		}
	}
	if longitude < -180 || longitude > 180 {
		return &ValidationError{
			Field:   "longitude",
			Value:   strconv.FormatFloat(longitude, 'f', -1, 64),
			Message: "longitude out of range [-180, 180]",
		}
	}
	return nil
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
