package fluid_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/zurustar/gofluid/pkg/fluid"
)

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"bool true", true, 1},
		{"bool false", false, 0},
		{"string off", "off", 0},
		{"string OFF", "OFF", 0},
		{"string no", "no", 0},
		{"string false", "False", 0},
		{"string banana", "banana", 1},
		{"string yes", "yes", 1},
		{"float string", "3.5", 3.5},
		{"padded float string", " 0.25 ", 0.25},
		{"float", 3.5, 3.5},
		{"int", 7, 7},
		{"negative int", -2, -2},
		{"bytes", []byte("44100"), 44100},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fluid.CoerceFloat(tt.value); got != tt.want {
				t.Errorf("CoerceFloat(%#v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int string", "7", 7},
		{"float string truncates", "3.9", 3},
		{"negative float string truncates toward zero", "-3.9", -3},
		{"float truncates", 2.7, 2},
		{"bool", true, 1},
		{"off", "off", 0},
		{"banana", "banana", 1},
		{"inf falls back to truthiness", "inf", 1},
		{"nan float falls back to truthiness", math.NaN(), 1},
		{"int64", int64(256), 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fluid.CoerceInt(tt.value); got != tt.want {
				t.Errorf("CoerceInt(%#v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// TestCoercionIdempotenceProperty checks that coercing an already coerced
// value does not change it.
func TestCoercionIdempotenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("CoerceFloat is idempotent on strings", prop.ForAll(
		func(s string) bool {
			once := fluid.CoerceFloat(s)
			if math.IsNaN(once) {
				return math.IsNaN(fluid.CoerceFloat(once))
			}
			return fluid.CoerceFloat(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("CoerceFloat is idempotent on floats", prop.ForAll(
		func(f float64) bool {
			return fluid.CoerceFloat(fluid.CoerceFloat(f)) == f
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("CoerceInt is idempotent on strings", prop.ForAll(
		func(s string) bool {
			once := fluid.CoerceInt(s)
			return fluid.CoerceInt(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("CoerceInt matches truncated CoerceFloat on finite input", prop.ForAll(
		func(f float64) bool {
			return fluid.CoerceInt(f) == int(math.Trunc(fluid.CoerceFloat(f)))
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}
