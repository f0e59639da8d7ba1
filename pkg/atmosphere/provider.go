// Package atmosphere provides wind, density and temperature as continuous
// functions of latitude, longitude, altitude and time.
package atmosphere

import (
	"math"
	"time"

	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// Sample holds the atmospheric state at one query point. Samples are built
// per query and never cached by callers.
type Sample struct {
	WindEast    float64 `json:"wind_east"`  // m/s
	WindNorth   float64 `json:"wind_north"` // m/s
	WindUp      float64 `json:"wind_up"`    // m/s
	Density     float64 `json:"density"`    // kg/m^3
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"` // Pa
}

// WindSpeed returns the horizontal wind speed
func (s Sample) WindSpeed() float64 {
	return math.Hypot(s.WindEast, s.WindNorth)
}

// Coverage describes the envelope a provider can answer queries in
type Coverage struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	MinLatitude  float64   `json:"min_latitude"`
	MaxLatitude  float64   `json:"max_latitude"`
	MinLongitude float64   `json:"min_longitude"`
	MaxLongitude float64   `json:"max_longitude"`
	GlobalLon    bool      `json:"global_longitude"`
	MaxAltitude  float64   `json:"max_altitude"`
}

// ContainsTime reports whether t falls inside the validity window. A zero
// Start or End leaves that side open.
func (c Coverage) ContainsTime(t time.Time) bool {
	if !c.Start.IsZero() && t.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && t.After(c.End) {
		return false
	}
	return true
}

// Provider answers atmospheric queries. Implementations are safe for
// concurrent use and never block on I/O.
type Provider interface {
	Sample(lat, lon, alt float64, at time.Time) (Sample, error)
	Coverage() Coverage
}

func checkLatitude(lat, min, max float64) error {
	if !geo.ValidLatitude(lat) || lat < min || lat > max {
		return &simerr.OutOfBoundsError{Axis: "latitude", Value: lat, Min: min, Max: max}
	}
	return nil
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &simerr.NonPhysicalStateError{Quantity: name, Value: v, Reason: "not finite"}
	}
	return nil
}
