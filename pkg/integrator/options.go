package integrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// Method is the explicit scheme used to advance a step
type Method string

const (
	RK4      Method = "rk4"
	Midpoint Method = "midpoint"
)

// ParseMethod accepts a method name in any case
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", RK4:
		return RK4, nil
	case Midpoint:
		return Midpoint, nil
	}
	return "", fmt.Errorf("unknown integration method %q (want rk4 or midpoint)", s)
}

// Options control the step size and the safety ceilings of a run
type Options struct {
	Method        Method        `yaml:"method" json:"method"`
	MaxStep       time.Duration `yaml:"max_step" json:"max_step"`
	MinStep       time.Duration `yaml:"min_step" json:"min_step"`
	FineStep      time.Duration `yaml:"fine_step" json:"fine_step"`
	FineAltitude  float64       `yaml:"fine_altitude" json:"fine_altitude"` // metres above ground
	Tolerance     float64       `yaml:"tolerance" json:"tolerance"`         // m/s change per step
	MaxFlightTime time.Duration `yaml:"max_flight_time" json:"max_flight_time"`
	MaxSteps      int           `yaml:"max_steps" json:"max_steps"`
	Ground        Terrain       `yaml:"-" json:"-"`
}

// DefaultOptions returns the options used when a scenario leaves them unset
func DefaultOptions() Options {
	return Options{
		Method:        RK4,
		MaxStep:       20 * time.Second,
		MinStep:       250 * time.Millisecond,
		FineStep:      2 * time.Second,
		FineAltitude:  100,
		Tolerance:     0.5,
		MaxFlightTime: 12 * time.Hour,
		MaxSteps:      200000,
		Ground:        FlatTerrain{},
	}
}

// WithDefaults fills zero fields from DefaultOptions
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.MaxStep == 0 {
		o.MaxStep = d.MaxStep
	}
	if o.MinStep == 0 {
		o.MinStep = d.MinStep
	}
	if o.FineStep == 0 {
		o.FineStep = d.FineStep
	}
	if o.FineAltitude == 0 {
		o.FineAltitude = d.FineAltitude
	}
	if o.Tolerance == 0 {
		o.Tolerance = d.Tolerance
	}
	if o.MaxFlightTime == 0 {
		o.MaxFlightTime = d.MaxFlightTime
	}
	if o.MaxSteps == 0 {
		o.MaxSteps = d.MaxSteps
	}
	if o.Ground == nil {
		o.Ground = d.Ground
	}
	return o
}

// Validate checks the options after defaults have been applied
func (o Options) Validate() error {
	if _, err := ParseMethod(string(o.Method)); err != nil {
		return simerr.Invalid("integration.method", o.Method, "must be rk4 or midpoint")
	}
	if o.MinStep <= 0 {
		return simerr.Invalid("integration.min_step", o.MinStep, "must be positive")
	}
	if o.MaxStep < o.MinStep {
		return simerr.Invalid("integration.max_step", o.MaxStep, "must not be below min_step %s", o.MinStep)
	}
	if o.FineStep < o.MinStep || o.FineStep > o.MaxStep {
		return simerr.Invalid("integration.fine_step", o.FineStep, "must lie within [%s, %s]", o.MinStep, o.MaxStep)
	}
	if o.FineAltitude < 0 {
		return simerr.Invalid("integration.fine_altitude", o.FineAltitude, "must not be negative")
	}
	if !(o.Tolerance > 0) {
		return simerr.Invalid("integration.tolerance", o.Tolerance, "must be positive")
	}
	if o.MaxFlightTime <= 0 {
		return simerr.Invalid("integration.max_flight_time", o.MaxFlightTime, "must be positive")
	}
	if o.MaxSteps <= 0 {
		return simerr.Invalid("integration.max_steps", o.MaxSteps, "must be positive")
	}
	return nil
}
