package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantSet bool
		want    float64
		wantRaw string
	}{
		{name: "number", input: `48.87`, wantSet: true, want: 48.87},
		{name: "negative number", input: `-2.5`, wantSet: true, want: -2.5},
		{name: "numeric string", input: `"1500000"`, wantSet: true, want: 1500000},
		{name: "padded numeric string", input: `" 12.5 "`, wantSet: true, want: 12.5},
		{name: "null", input: `null`},
		{name: "empty string", input: `""`},
		{name: "garbage string", input: `"abc"`, wantRaw: "abc"},
		{name: "NaN string", input: `"NaN"`, wantRaw: "NaN"},
		{name: "boolean", input: `true`, wantRaw: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			if err := json.Unmarshal([]byte(tt.input), &n); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if n.Set != tt.wantSet {
				t.Errorf("Set = %v, want %v", n.Set, tt.wantSet)
			}
			if n.Value != tt.want {
				t.Errorf("Value = %v, want %v", n.Value, tt.want)
			}
			if n.Raw != tt.wantRaw {
				t.Errorf("Raw = %q, want %q", n.Raw, tt.wantRaw)
			}
		})
	}
}

func TestNumber_MissingField(t *testing.T) {
	var in FactoryInput
	if err := json.Unmarshal([]byte(`{"factoryName":"A"}`), &in); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if in.YearlyRevenue.Set {
		t.Error("YearlyRevenue should not be set when absent")
	}
}

func validInput() FactoryInput {
	return FactoryInput{
		FactoryName:   "Paris Plant",
		Country:       "France",
		Address:       "1 Rue de Rivoli",
		Latitude:      NewNumber(48.87),
		Longitude:     NewNumber(2.35),
		YearlyRevenue: NewNumber(1_000_000),
	}
}

func TestFactoryInput_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*FactoryInput)
		wantField string
	}{
		{name: "valid", mutate: func(*FactoryInput) {}},
		{name: "missing factoryName", mutate: func(in *FactoryInput) { in.FactoryName = "" }, wantField: "factoryName"},
		{name: "blank factoryName", mutate: func(in *FactoryInput) { in.FactoryName = "   " }, wantField: "factoryName"},
		{name: "missing country", mutate: func(in *FactoryInput) { in.Country = "" }, wantField: "country"},
		{name: "missing address", mutate: func(in *FactoryInput) { in.Address = "" }, wantField: "address"},
		{name: "missing revenue", mutate: func(in *FactoryInput) { in.YearlyRevenue = Number{} }, wantField: "yearlyRevenue"},
		{name: "zero revenue", mutate: func(in *FactoryInput) { in.YearlyRevenue = NewNumber(0) }, wantField: "yearlyRevenue"},
		{name: "zero revenue as string", mutate: func(in *FactoryInput) { in.YearlyRevenue = ParseNumber("0") }, wantField: "yearlyRevenue"},
		{name: "blank address", mutate: func(in *FactoryInput) { in.Address = " \t" }, wantField: "address"},
		{name: "non numeric revenue", mutate: func(in *FactoryInput) { in.YearlyRevenue = Number{Raw: "lots"} }, wantField: "yearlyRevenue"},
		{name: "missing latitude", mutate: func(in *FactoryInput) { in.Latitude = Number{} }, wantField: "latitude"},
		{name: "missing longitude", mutate: func(in *FactoryInput) { in.Longitude = Number{} }, wantField: "longitude"},
		{name: "latitude out of range", mutate: func(in *FactoryInput) { in.Latitude = NewNumber(91) }, wantField: "latitude"},
		{name: "longitude out of range", mutate: func(in *FactoryInput) { in.Longitude = NewNumber(-180.5) }, wantField: "longitude"},
		{name: "boundary coordinates", mutate: func(in *FactoryInput) {
			in.Latitude = NewNumber(-90)
			in.Longitude = NewNumber(180)
		}},
		{name: "negative revenue is truthy", mutate: func(in *FactoryInput) { in.YearlyRevenue = NewNumber(-5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := in.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
			}
			if vErr.IsTransient() {
				t.Error("validation errors should not be transient")
			}
		})
	}
}

func TestFactoryInput_ToFactory(t *testing.T) {
	in := validInput()
	in.FactoryName = "  Paris Plant "

	f := in.ToFactory()
	if f.FactoryName != "Paris Plant" {
		t.Errorf("FactoryName = %q, want trimmed", f.FactoryName)
	}
	if f.Latitude != 48.87 || f.Longitude != 2.35 {
		t.Errorf("coordinates = (%v, %v), want (48.87, 2.35)", f.Latitude, f.Longitude)
	}
	if f.YearlyRevenue != 1_000_000 {
		t.Errorf("YearlyRevenue = %v, want 1000000", f.YearlyRevenue)
	}
	if f.TemperatureRisk != RiskUndefined {
		t.Errorf("TemperatureRisk = %q, want Undefined before evaluation", f.TemperatureRisk)
	}
	if f.ID != 0 {
		t.Errorf("ID = %d, want 0 before insert", f.ID)
	}
}

func TestParseTemperatureRisk(t *testing.T) {
	tests := []struct {
		in      string
		want    TemperatureRisk
		wantErr bool
	}{
		{"High", RiskHigh, false},
		{"low", RiskLow, false},
		{" UNDEFINED ", RiskUndefined, false},
		{"Medium", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTemperatureRisk(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTemperatureRisk(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTemperatureRisk(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFactory_JSONShape(t *testing.T) {
	f := Factory{
		ID:              3,
		FactoryName:     "Lyon Works",
		Country:         "France",
		Address:         "2 Quai",
		Latitude:        45.76,
		Longitude:       4.83,
		YearlyRevenue:   42,
		TemperatureRisk: RiskLow,
	}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, key := range []string{"id", "factoryName", "country", "address", "latitude", "longitude", "yearlyRevenue", "temperatureRisk"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing JSON key %q", key)
		}
	}
	if _, ok := got["temperatureRiskUpdatedAt"]; ok {
		t.Error("temperatureRiskUpdatedAt should be omitted when nil")
	}
}

func TestTemperatureSample_NullTemperature(t *testing.T) {
	data, err := json.Marshal(TemperatureSample{Year: "2030"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"year":"2030","temperature":null}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestParseNumber(t *testing.T) {
	if n := ParseNumber(" 42.5 "); !n.Set || n.Value != 42.5 {
		t.Errorf("ParseNumber(42.5) = %+v", n)
	}
	if n := ParseNumber(""); n.Set || n.Raw != "" {
		t.Errorf("ParseNumber(\"\") = %+v, want unset", n)
	}
	if n := ParseNumber("Inf"); n.Set || n.Raw != "Inf" {
		t.Errorf("ParseNumber(Inf) = %+v, want raw", n)
	}
}
