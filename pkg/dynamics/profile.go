// Package dynamics models the descent of an unpowered airframe through a
// sampled atmosphere.
package dynamics

import (
	"math"
	"sort"

	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// GuidanceMode selects how a gliding airframe picks its heading
type GuidanceMode string

const (
	GuidanceNone    GuidanceMode = "none"
	GuidanceHeading GuidanceMode = "heading"
	GuidanceTarget  GuidanceMode = "target"
)

// Guidance is the commanded heading of a gliding descent. It is ignored
// unless the profile has a positive glide ratio.
type Guidance struct {
	Mode    GuidanceMode `yaml:"mode" json:"mode"`
	Heading float64      `yaml:"heading,omitempty" json:"heading,omitempty"` // degrees clockwise from north
	Target  *geo.Point   `yaml:"target,omitempty" json:"target,omitempty"`
}

// DragPoint is one entry of an altitude dependent drag coefficient table
type DragPoint struct {
	Altitude        float64 `yaml:"altitude" json:"altitude"`
	DragCoefficient float64 `yaml:"cd" json:"cd"`
}

// Profile describes the airframe. Drag comes either from mass, reference
// area and drag coefficient (or DragTable), or from a sea-level terminal
// velocity. TerminalVelocity wins when both are given.
type Profile struct {
	Name             string      `yaml:"name,omitempty" json:"name,omitempty"`
	Mass             float64     `yaml:"mass,omitempty" json:"mass,omitempty"`                     // kg
	ReferenceArea    float64     `yaml:"reference_area,omitempty" json:"reference_area,omitempty"` // m^2
	DragCoefficient  float64     `yaml:"drag_coefficient,omitempty" json:"drag_coefficient,omitempty"`
	DragTable        []DragPoint `yaml:"drag_table,omitempty" json:"drag_table,omitempty"`
	TerminalVelocity float64     `yaml:"terminal_velocity,omitempty" json:"terminal_velocity,omitempty"` // m/s at sea level
	GlideRatio       float64     `yaml:"glide_ratio,omitempty" json:"glide_ratio,omitempty"`
	Guidance         Guidance    `yaml:"guidance,omitempty" json:"guidance,omitempty"`
}

// Gliding reports whether the profile flies with horizontal airspeed
func (p Profile) Gliding() bool {
	return p.GlideRatio > 0 && p.Guidance.Mode != "" && p.Guidance.Mode != GuidanceNone
}

// Validate checks that the profile describes a physical airframe. The
// returned error is a *simerr.ValidationError naming the offending field.
func (p Profile) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"profile.mass", p.Mass},
		{"profile.reference_area", p.ReferenceArea},
		{"profile.drag_coefficient", p.DragCoefficient},
		{"profile.terminal_velocity", p.TerminalVelocity},
		{"profile.glide_ratio", p.GlideRatio},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return simerr.Invalid(f.name, f.value, "must be finite")
		}
		if f.value < 0 {
			return simerr.Invalid(f.name, f.value, "must not be negative")
		}
	}

	if p.TerminalVelocity == 0 {
		if p.Mass <= 0 {
			return simerr.Invalid("profile.mass", p.Mass, "must be positive when no terminal velocity is given")
		}
		if p.ReferenceArea <= 0 {
			return simerr.Invalid("profile.reference_area", p.ReferenceArea, "must be positive when no terminal velocity is given")
		}
		if len(p.DragTable) == 0 && p.DragCoefficient <= 0 {
			return simerr.Invalid("profile.drag_coefficient", p.DragCoefficient, "must be positive when no terminal velocity is given")
		}
	}

	for i, d := range p.DragTable {
		if !(d.DragCoefficient > 0) || math.IsInf(d.DragCoefficient, 0) {
			return simerr.Invalid("profile.drag_table", d.DragCoefficient, "entry %d: drag coefficient must be positive", i)
		}
		if i > 0 && d.Altitude <= p.DragTable[i-1].Altitude {
			return simerr.Invalid("profile.drag_table", d.Altitude, "entry %d: altitudes must be strictly ascending", i)
		}
	}

	switch p.Guidance.Mode {
	case "", GuidanceNone:
	case GuidanceHeading:
		if math.IsNaN(p.Guidance.Heading) || math.IsInf(p.Guidance.Heading, 0) {
			return simerr.Invalid("profile.guidance.heading", p.Guidance.Heading, "must be finite")
		}
	case GuidanceTarget:
		if p.Guidance.Target == nil {
			return simerr.Invalid("profile.guidance.target", nil, "required for target guidance")
		}
		if !geo.ValidLatitude(p.Guidance.Target.Lat) {
			return simerr.Invalid("profile.guidance.target.lat", p.Guidance.Target.Lat, "must be within [-90, 90]")
		}
	default:
		return simerr.Invalid("profile.guidance.mode", p.Guidance.Mode, "must be one of none, heading, target")
	}
	if p.Guidance.Mode != "" && p.Guidance.Mode != GuidanceNone && p.GlideRatio == 0 {
		return simerr.Invalid("profile.glide_ratio", p.GlideRatio, "guidance requires a positive glide ratio")
	}
	return nil
}

// sortedTable returns the drag table ordered by altitude
func (p Profile) sortedTable() (alts, cds []float64) {
	table := append([]DragPoint(nil), p.DragTable...)
	sort.Slice(table, func(i, j int) bool { return table[i].Altitude < table[j].Altitude })
	for _, d := range table {
		alts = append(alts, d.Altitude)
		cds = append(cds, d.DragCoefficient)
	}
	return alts, cds
}
