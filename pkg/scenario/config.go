// Package scenario owns one descent configuration and runs it once, as a
// Monte Carlo ensemble, or as a heading sweep.
package scenario

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// Config holds the complete scenario configuration
type Config struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Dataset names a registered grid file; Wind is used when it is empty
	Dataset string                 `yaml:"dataset,omitempty" json:"dataset,omitempty"`
	Wind    []atmosphere.WindLayer `yaml:"wind,omitempty" json:"wind,omitempty"`

	Release      ReleaseConfig      `yaml:"release" json:"release"`
	Profile      dynamics.Profile   `yaml:"profile" json:"profile"`
	Integration  IntegrationConfig  `yaml:"integration" json:"integration"`
	Ensemble     EnsembleConfig     `yaml:"ensemble" json:"ensemble"`
	Reachability ReachabilityConfig `yaml:"reachability" json:"reachability"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// ReleaseConfig is where and when the airframe is let go
type ReleaseConfig struct {
	Latitude      float64   `yaml:"latitude" json:"latitude"`
	Longitude     float64   `yaml:"longitude" json:"longitude"`
	Altitude      float64   `yaml:"altitude" json:"altitude"` // metres
	Time          time.Time `yaml:"time" json:"time"`
	VerticalSpeed float64   `yaml:"vertical_speed,omitempty" json:"vertical_speed,omitempty"` // m/s, positive up
}

// State converts the release into the integrator's initial state
func (r ReleaseConfig) State() dynamics.State {
	return dynamics.State{
		Lat:           r.Latitude,
		Lon:           geo.NormalizeLongitude(r.Longitude),
		Alt:           r.Altitude,
		VerticalSpeed: r.VerticalSpeed,
		Time:          r.Time.UTC(),
	}
}

// IntegrationConfig wraps the integrator options with the ground elevation
type IntegrationConfig struct {
	integrator.Options `yaml:",inline"`
	GroundElevation    float64 `yaml:"ground_elevation,omitempty" json:"ground_elevation,omitempty"`
}

// EnsembleConfig controls Monte Carlo mode
type EnsembleConfig struct {
	Runs             int          `yaml:"runs" json:"runs"`
	Workers          int          `yaml:"workers,omitempty" json:"workers,omitempty"` // 0 means GOMAXPROCS
	Seed             uint64       `yaml:"seed" json:"seed"`
	FailureThreshold float64      `yaml:"failure_threshold" json:"failure_threshold"`
	Perturbation     Perturbation `yaml:"perturbation" json:"perturbation"`
}

// Distribution shapes the random draws of an ensemble
type Distribution string

const (
	Normal  Distribution = "normal"
	Uniform Distribution = "uniform"
)

// Perturbation describes the input uncertainty of an ensemble. Sigmas are
// standard deviations for the normal distribution and half-widths for the
// uniform one. Fractions scale the profile parameter they name.
type Perturbation struct {
	PositionSigma            float64       `yaml:"position_sigma" json:"position_sigma"` // metres
	AltitudeSigma            float64       `yaml:"altitude_sigma" json:"altitude_sigma"` // metres
	TimeJitter               time.Duration `yaml:"time_jitter" json:"time_jitter"`
	MassFraction             float64       `yaml:"mass_fraction" json:"mass_fraction"`
	DragFraction             float64       `yaml:"drag_fraction" json:"drag_fraction"`
	TerminalVelocityFraction float64       `yaml:"terminal_velocity_fraction" json:"terminal_velocity_fraction"`
	HeadingSigma             float64       `yaml:"heading_sigma" json:"heading_sigma"` // degrees
	Distribution             Distribution  `yaml:"distribution" json:"distribution"`
}

// affectsProfile reports whether runs need their own dynamics model
func (p Perturbation) affectsProfile() bool {
	return p.MassFraction > 0 || p.DragFraction > 0 || p.TerminalVelocityFraction > 0 || p.HeadingSigma > 0
}

// ReachabilityConfig controls the heading sweep
type ReachabilityConfig struct {
	Headings int `yaml:"headings" json:"headings"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level" json:"console_level"`
}

// Validate checks the configuration. Errors are *simerr.ValidationError
// naming the offending field.
func (c *Config) Validate() error {
	r := c.Release
	if !geo.ValidLatitude(r.Latitude) {
		return simerr.Invalid("release.latitude", r.Latitude, "must be within [-90, 90]")
	}
	if math.IsNaN(r.Longitude) || math.IsInf(r.Longitude, 0) {
		return simerr.Invalid("release.longitude", r.Longitude, "must be finite")
	}
	if math.IsNaN(r.Altitude) || math.IsInf(r.Altitude, 0) {
		return simerr.Invalid("release.altitude", r.Altitude, "must be finite")
	}
	if r.Altitude <= c.Integration.GroundElevation {
		return simerr.Invalid("release.altitude", r.Altitude, "must be above the ground elevation %g m", c.Integration.GroundElevation)
	}
	if r.Time.IsZero() {
		return simerr.Invalid("release.time", nil, "is required")
	}
	if math.IsNaN(r.VerticalSpeed) || math.IsInf(r.VerticalSpeed, 0) {
		return simerr.Invalid("release.vertical_speed", r.VerticalSpeed, "must be finite")
	}

	if err := c.Profile.Validate(); err != nil {
		return err
	}
	if err := c.Integration.Options.WithDefaults().Validate(); err != nil {
		return err
	}

	e := c.Ensemble
	if e.Runs < 0 {
		return simerr.Invalid("ensemble.runs", e.Runs, "must not be negative")
	}
	if e.Workers < 0 {
		return simerr.Invalid("ensemble.workers", e.Workers, "must not be negative")
	}
	if e.FailureThreshold < 0 || e.FailureThreshold > 1 {
		return simerr.Invalid("ensemble.failure_threshold", e.FailureThreshold, "must be between 0.0 and 1.0")
	}
	p := e.Perturbation
	for _, f := range []struct {
		name  string
		value float64
		max   float64
	}{
		{"ensemble.perturbation.position_sigma", p.PositionSigma, math.Inf(1)},
		{"ensemble.perturbation.altitude_sigma", p.AltitudeSigma, math.Inf(1)},
		{"ensemble.perturbation.time_jitter", p.TimeJitter.Seconds(), math.Inf(1)},
		{"ensemble.perturbation.mass_fraction", p.MassFraction, 0.5},
		{"ensemble.perturbation.drag_fraction", p.DragFraction, 0.5},
		{"ensemble.perturbation.terminal_velocity_fraction", p.TerminalVelocityFraction, 0.5},
		{"ensemble.perturbation.heading_sigma", p.HeadingSigma, 180},
	} {
		if math.IsNaN(f.value) || f.value < 0 || f.value > f.max {
			return simerr.Invalid(f.name, f.value, "must be between 0 and %g", f.max)
		}
	}
	switch p.Distribution {
	case "", Normal, Uniform:
	default:
		return simerr.Invalid("ensemble.perturbation.distribution", p.Distribution, "must be normal or uniform")
	}

	if c.Reachability.Headings < 0 {
		return simerr.Invalid("reachability.headings", c.Reachability.Headings, "must not be negative")
	}
	return nil
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	opts := c.Integration.Options.WithDefaults()
	var drag string
	switch {
	case c.Profile.TerminalVelocity > 0:
		drag = fmt.Sprintf("terminal velocity %.1f m/s", c.Profile.TerminalVelocity)
	case len(c.Profile.DragTable) > 0:
		drag = fmt.Sprintf("m=%.2f kg, A=%.3f m^2, Cd table (%d points)", c.Profile.Mass, c.Profile.ReferenceArea, len(c.Profile.DragTable))
	default:
		drag = fmt.Sprintf("m=%.2f kg, A=%.3f m^2, Cd=%.2f", c.Profile.Mass, c.Profile.ReferenceArea, c.Profile.DragCoefficient)
	}
	atmos := "dataset " + c.Dataset
	if c.Dataset == "" {
		atmos = fmt.Sprintf("%d wind layers", len(c.Wind))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scenario Configuration:\n")
	fmt.Fprintf(&b, "  Name: %s\n", c.Name)
	fmt.Fprintf(&b, "  Atmosphere: %s\n", atmos)
	fmt.Fprintf(&b, "  Release: %.4f, %.4f at %.0f m, %s\n", c.Release.Latitude, geo.SignedLongitude(c.Release.Longitude), c.Release.Altitude, c.Release.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "  Profile: %s\n", drag)
	if c.Profile.Gliding() {
		fmt.Fprintf(&b, "  Glide: L/D %.1f, guidance %s\n", c.Profile.GlideRatio, c.Profile.Guidance.Mode)
	}
	fmt.Fprintf(&b, "  Integration: %s, steps %s..%s, tolerance %.2f m/s, ceiling %s\n", opts.Method, opts.MinStep, opts.MaxStep, opts.Tolerance, opts.MaxFlightTime)
	fmt.Fprintf(&b, "  Ensemble: %d runs, seed %d, failure threshold %.0f%%\n", c.Ensemble.Runs, c.Ensemble.Seed, c.Ensemble.FailureThreshold*100)
	fmt.Fprintf(&b, "  Logging: %s", c.Logging.ConsoleLevel)
	return b.String()
}

// WindProvider builds the layered atmosphere described by Wind. It is used
// when no dataset is loaded.
func (c *Config) WindProvider() (atmosphere.Provider, error) {
	if len(c.Wind) == 0 {
		return nil, simerr.Invalid("wind", nil, "no wind layers and no dataset given")
	}
	p, err := atmosphere.NewLayeredProvider(c.Wind, time.Time{}, time.Time{})
	if err != nil {
		return nil, simerr.Invalid("wind", len(c.Wind), "%v", err)
	}
	return p, nil
}

// GetDefaultConfig returns a calm-air descent from 30 km released at the
// start of the current hour
func GetDefaultConfig() *Config {
	return &Config{
		Name:        "descent",
		Description: "Unpowered descent from the stratosphere",
		Wind:        []atmosphere.WindLayer{{Top: 40000, Speed: 0}},
		Release: ReleaseConfig{
			Latitude:  50,
			Longitude: -2,
			Altitude:  30000,
			Time:      time.Now().UTC().Truncate(time.Hour),
		},
		Profile: dynamics.Profile{
			Name:             "default",
			TerminalVelocity: 5,
			Guidance:         dynamics.Guidance{Mode: dynamics.GuidanceNone},
		},
		Integration: IntegrationConfig{Options: integrator.DefaultOptions()},
		Ensemble: EnsembleConfig{
			Runs:             100,
			Seed:             1,
			FailureThreshold: 0.1,
			Perturbation: Perturbation{
				PositionSigma:            500,
				AltitudeSigma:            100,
				TimeJitter:               10 * time.Minute,
				TerminalVelocityFraction: 0.05,
				Distribution:             Normal,
			},
		},
		Reachability: ReachabilityConfig{Headings: 36},
		Logging:      LoggingConfig{ConsoleLevel: "info"},
	}
}

// Template returns the defaults a scenario document is decoded over. The
// wind layers and the profile start empty, so a document that sets them
// replaces them as a whole.
func Template() *Config {
	c := GetDefaultConfig()
	c.Wind = nil
	c.Profile = dynamics.Profile{}
	return c
}

// FillProfileDefaults completes a profile decoded over Template. The
// default terminal velocity applies only when the document gave no drag at
// all.
func (c *Config) FillProfileDefaults() {
	def := GetDefaultConfig().Profile
	p := &c.Profile
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.Mass == 0 && p.ReferenceArea == 0 && p.DragCoefficient == 0 && len(p.DragTable) == 0 && p.TerminalVelocity == 0 {
		p.TerminalVelocity = def.TerminalVelocity
	}
	if p.Guidance.Mode == "" {
		p.Guidance.Mode = def.Guidance.Mode
	}
}
