package dynamics

import (
	"math"
	"time"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/interpolate"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// MinDensity is the lowest air density (kg/m^3) the drag balance accepts
const MinDensity = 1e-6

// polarLimit is the latitude beyond which horizontal motion cannot be
// expressed as a longitude rate
const polarLimit = 89.999

// State is the position and vertical speed of the airframe at one instant.
// VerticalSpeed is positive upwards.
type State struct {
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Alt           float64   `json:"alt"`
	VerticalSpeed float64   `json:"vertical_speed"`
	Time          time.Time `json:"time"`
}

// Point returns the horizontal position of the state
func (s State) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// Derivative is the rate of change of a State per second
type Derivative struct {
	DLat           float64 // deg/s
	DLon           float64 // deg/s
	DAlt           float64 // m/s
	DVerticalSpeed float64 // m/s^2

	// ground velocity, kept for reporting
	GroundEast  float64
	GroundNorth float64
}

// Model evaluates the descent dynamics for one profile. It holds no
// per-run state and is safe for concurrent use.
type Model struct {
	profile   Profile
	sinGamma  float64
	ballistic float64 // g/(rho0 vt0^2) when driven by terminal velocity
	tableAlt  []float64
	tableCd   []float64
}

// NewModel validates the profile and precomputes its constants
func NewModel(p Profile) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m := &Model{profile: p, sinGamma: 1}
	if p.Gliding() {
		gamma := math.Atan(1 / p.GlideRatio)
		m.sinGamma = math.Sin(gamma)
	}
	if p.TerminalVelocity > 0 {
		m.ballistic = atmosphere.Gravity / (atmosphere.SeaLevelDensity * p.TerminalVelocity * p.TerminalVelocity)
	}
	if len(p.DragTable) > 0 {
		m.tableAlt, m.tableCd = p.sortedTable()
	}
	return m, nil
}

// Profile returns the profile the model was built from
func (m *Model) Profile() Profile {
	return m.profile
}

// DragCoefficient returns the effective drag coefficient at alt
func (m *Model) DragCoefficient(alt float64) float64 {
	if len(m.tableAlt) > 0 {
		return interpolate.Linear(m.tableAlt, m.tableCd, alt)
	}
	return m.profile.DragCoefficient
}

// dragFactor returns k such that the drag deceleration is k*v^2
func (m *Model) dragFactor(density, alt float64) float64 {
	if m.ballistic > 0 {
		return m.ballistic * density
	}
	p := m.profile
	return 0.5 * density * m.DragCoefficient(alt) * p.ReferenceArea / p.Mass
}

func checkDensity(density float64) error {
	switch {
	case math.IsNaN(density) || math.IsInf(density, 0):
		return &simerr.NonPhysicalStateError{Quantity: "density", Value: density, Reason: "not finite"}
	case density <= 0:
		return &simerr.NonPhysicalStateError{Quantity: "density", Value: density, Reason: "must be positive"}
	case density < MinDensity:
		return &simerr.NonPhysicalStateError{Quantity: "density", Value: density, Reason: "below the minimum for a drag balance"}
	}
	return nil
}

// TerminalVelocity returns the steady sink rate (m/s, positive) at the
// given density and altitude
func (m *Model) TerminalVelocity(density, alt float64) (float64, error) {
	if err := checkDensity(density); err != nil {
		return 0, err
	}
	k := m.dragFactor(density, alt)
	if !(k > 0) || math.IsInf(k, 0) {
		return 0, &simerr.NonPhysicalStateError{Quantity: "drag factor", Value: k, Reason: "terminal velocity does not converge"}
	}
	s := m.sinGamma
	return math.Sqrt(atmosphere.Gravity * s * s * s / k), nil
}

// RelaxationTime returns the time constant (s) with which the vertical
// speed approaches terminal velocity. Explicit steps must stay near or
// below it.
func (m *Model) RelaxationTime(s State, sample atmosphere.Sample) (float64, error) {
	vt, err := m.TerminalVelocity(sample.Density, s.Alt)
	if err != nil {
		return 0, err
	}
	k := m.dragFactor(sample.Density, s.Alt)
	v := math.Max(math.Abs(s.VerticalSpeed), vt)
	return m.sinGamma / (2 * k * v), nil
}

// Heading returns the commanded heading in degrees for a gliding profile
func (m *Model) Heading(s State) (float64, bool) {
	if !m.profile.Gliding() {
		return 0, false
	}
	g := m.profile.Guidance
	switch g.Mode {
	case GuidanceHeading:
		return g.Heading, true
	case GuidanceTarget:
		if geo.Distance(s.Point(), *g.Target) < 1 {
			return 0, false
		}
		return geo.InitialBearing(s.Point(), *g.Target), true
	}
	return 0, false
}

// Derivative evaluates the equations of motion at s in the given sample.
// The vertical speed relaxes towards terminal velocity along the glide path:
//
//	dVz/dt = -g sin^2(gamma) - k Vz|Vz| / sin(gamma)
//
// and the airframe drifts with the wind plus its glide airspeed.
func (m *Model) Derivative(s State, sample atmosphere.Sample) (Derivative, error) {
	if err := checkDensity(sample.Density); err != nil {
		return Derivative{}, err
	}
	if math.IsNaN(s.VerticalSpeed) || math.IsInf(s.VerticalSpeed, 0) {
		return Derivative{}, &simerr.NonPhysicalStateError{Quantity: "vertical speed", Value: s.VerticalSpeed, Reason: "not finite"}
	}

	k := m.dragFactor(sample.Density, s.Alt)
	sg := m.sinGamma
	vz := s.VerticalSpeed
	dvz := -atmosphere.Gravity*sg*sg - k*vz*math.Abs(vz)/sg

	east, north := sample.WindEast, sample.WindNorth
	if heading, ok := m.Heading(s); ok && vz < 0 {
		airspeed := -vz * m.profile.GlideRatio
		rad := heading * math.Pi / 180
		east += airspeed * math.Sin(rad)
		north += airspeed * math.Cos(rad)
	}

	d := Derivative{
		DAlt:           vz + sample.WindUp,
		DVerticalSpeed: dvz,
		GroundEast:     east,
		GroundNorth:    north,
	}
	if east == 0 && north == 0 {
		return d, nil
	}
	if math.Abs(s.Lat) >= polarLimit {
		return Derivative{}, &simerr.NonPhysicalStateError{Quantity: "latitude", Value: s.Lat, Reason: "horizontal motion at the pole"}
	}
	d.DLat, d.DLon = geo.VelocityToAngularRate(s.Lat, s.Alt, east, north)
	return d, nil
}
