package dynamics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

func calm(alt float64) atmosphere.Sample {
	return atmosphere.Sample{
		Density:     atmosphere.StandardDensity(alt),
		Temperature: atmosphere.StandardTemperature(alt),
		Pressure:    atmosphere.StandardPressure(alt),
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		field   string
	}{
		{"terminal velocity only", Profile{TerminalVelocity: 5}, ""},
		{"mass area cd", Profile{Mass: 2, ReferenceArea: 0.3, DragCoefficient: 1.2}, ""},
		{"drag table instead of cd", Profile{Mass: 2, ReferenceArea: 0.3, DragTable: []DragPoint{{0, 1}, {10000, 1.3}}}, ""},
		{"nothing", Profile{}, "profile.mass"},
		{"zero area", Profile{Mass: 2, DragCoefficient: 1}, "profile.reference_area"},
		{"zero cd", Profile{Mass: 2, ReferenceArea: 1}, "profile.drag_coefficient"},
		{"negative mass", Profile{Mass: -1, TerminalVelocity: 5}, "profile.mass"},
		{"nan terminal velocity", Profile{TerminalVelocity: math.NaN()}, "profile.terminal_velocity"},
		{"unordered table", Profile{Mass: 1, ReferenceArea: 1, DragTable: []DragPoint{{100, 1}, {50, 1}}}, "profile.drag_table"},
		{"guidance without glide", Profile{TerminalVelocity: 5, Guidance: Guidance{Mode: GuidanceHeading}}, "profile.glide_ratio"},
		{"target missing", Profile{TerminalVelocity: 5, GlideRatio: 3, Guidance: Guidance{Mode: GuidanceTarget}}, "profile.guidance.target"},
		{"unknown mode", Profile{TerminalVelocity: 5, GlideRatio: 3, Guidance: Guidance{Mode: "spiral"}}, "profile.guidance.mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *simerr.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTerminalVelocityFromSeaLevelValue(t *testing.T) {
	m, err := NewModel(Profile{TerminalVelocity: 5})
	require.NoError(t, err)

	vt, err := m.TerminalVelocity(atmosphere.SeaLevelDensity, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, vt, 1e-12)

	// thinner air, faster fall
	high, err := m.TerminalVelocity(atmosphere.StandardDensity(30000), 30000)
	require.NoError(t, err)
	want := 5 * math.Sqrt(atmosphere.SeaLevelDensity/atmosphere.StandardDensity(30000))
	assert.InDelta(t, want, high, 1e-9)
}

func TestTerminalVelocityFromDragBalance(t *testing.T) {
	p := Profile{Mass: 2, ReferenceArea: 0.5, DragCoefficient: 1.0}
	m, err := NewModel(p)
	require.NoError(t, err)

	vt, err := m.TerminalVelocity(1.2, 0)
	require.NoError(t, err)
	want := math.Sqrt(2 * 2 * atmosphere.Gravity / (1.2 * 1.0 * 0.5))
	assert.InDelta(t, want, vt, 1e-12)
}

func TestDragTableOverridesScalar(t *testing.T) {
	m, err := NewModel(Profile{
		Mass: 1, ReferenceArea: 1, DragCoefficient: 9,
		DragTable: []DragPoint{{Altitude: 0, DragCoefficient: 1}, {Altitude: 1000, DragCoefficient: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.DragCoefficient(-10))
	assert.Equal(t, 1.5, m.DragCoefficient(500))
	assert.Equal(t, 2.0, m.DragCoefficient(5000))
}

func TestTerminalVelocityRejectsThinAir(t *testing.T) {
	m, err := NewModel(Profile{TerminalVelocity: 5})
	require.NoError(t, err)

	for _, rho := range []float64{0, -0.1, MinDensity / 2, math.NaN(), math.Inf(1)} {
		_, err := m.TerminalVelocity(rho, 0)
		var np *simerr.NonPhysicalStateError
		assert.True(t, errors.As(err, &np), "density %g", rho)
	}
}

func TestDerivativeAtTerminalVelocity(t *testing.T) {
	m, err := NewModel(Profile{TerminalVelocity: 5})
	require.NoError(t, err)

	s := State{Lat: 50, Lon: 358, Alt: 0, VerticalSpeed: -5}
	d, err := m.Derivative(s, calm(0))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d.DVerticalSpeed, 1e-9)
	assert.Equal(t, -5.0, d.DAlt)
	assert.Equal(t, 0.0, d.DLat)
	assert.Equal(t, 0.0, d.DLon)

	// released at rest the airframe accelerates downwards at g
	d, err = m.Derivative(State{Lat: 50, Lon: 358, Alt: 1000}, calm(1000))
	require.NoError(t, err)
	assert.InDelta(t, -atmosphere.Gravity, d.DVerticalSpeed, 1e-12)
}

func TestDerivativeFollowsWind(t *testing.T) {
	m, err := NewModel(Profile{TerminalVelocity: 5})
	require.NoError(t, err)

	sample := calm(5000)
	sample.WindEast = 10
	sample.WindNorth = -4
	sample.WindUp = 0.5

	d, err := m.Derivative(State{Lat: 0, Lon: 10, Alt: 5000, VerticalSpeed: -8}, sample)
	require.NoError(t, err)

	wantLat, wantLon := geo.VelocityToAngularRate(0, 5000, 10, -4)
	assert.Equal(t, wantLat, d.DLat)
	assert.Equal(t, wantLon, d.DLon)
	assert.Equal(t, -7.5, d.DAlt)
	assert.Equal(t, 10.0, d.GroundEast)
}

func TestDerivativeGlide(t *testing.T) {
	m, err := NewModel(Profile{
		TerminalVelocity: 5,
		GlideRatio:       4,
		Guidance:         Guidance{Mode: GuidanceHeading, Heading: 90},
	})
	require.NoError(t, err)

	d, err := m.Derivative(State{Lat: 0, Lon: 0, Alt: 100, VerticalSpeed: -2}, calm(100))
	require.NoError(t, err)
	assert.InDelta(t, 8.0, d.GroundEast, 1e-12)
	assert.InDelta(t, 0.0, d.GroundNorth, 1e-12)
	assert.Greater(t, d.DLon, 0.0)

	// a glide path sinks slower than a vertical fall
	vt, err := m.TerminalVelocity(atmosphere.SeaLevelDensity, 0)
	require.NoError(t, err)
	sin := math.Sin(math.Atan(0.25))
	assert.InDelta(t, 5*math.Pow(sin, 1.5), vt, 1e-12)
}

func TestDerivativeTargetGuidance(t *testing.T) {
	target := geo.Point{Lat: 51, Lon: 0}
	m, err := NewModel(Profile{
		TerminalVelocity: 5,
		GlideRatio:       3,
		Guidance:         Guidance{Mode: GuidanceTarget, Target: &target},
	})
	require.NoError(t, err)

	heading, ok := m.Heading(State{Lat: 50, Lon: 0})
	require.True(t, ok)
	assert.InDelta(t, 0.0, heading, 1e-9)

	// over the target the glide stops commanding a heading
	_, ok = m.Heading(State{Lat: 51, Lon: 0})
	assert.False(t, ok)
}

func TestDerivativeNonPhysical(t *testing.T) {
	m, err := NewModel(Profile{TerminalVelocity: 5})
	require.NoError(t, err)

	var np *simerr.NonPhysicalStateError

	_, err = m.Derivative(State{Alt: 80000}, atmosphere.Sample{Density: 1e-8})
	require.True(t, errors.As(err, &np))
	assert.Equal(t, "density", np.Quantity)

	_, err = m.Derivative(State{Alt: 10, VerticalSpeed: math.NaN()}, calm(10))
	require.True(t, errors.As(err, &np))

	windy := calm(10)
	windy.WindEast = 3
	_, err = m.Derivative(State{Lat: 90, Alt: 10}, windy)
	require.True(t, errors.As(err, &np))
	assert.Equal(t, "latitude", np.Quantity)

	// calm air at the pole is fine
	_, err = m.Derivative(State{Lat: 90, Alt: 10}, calm(10))
	assert.NoError(t, err)
}

func TestRelaxationTime(t *testing.T) {
	m, err := NewModel(Profile{TerminalVelocity: 5})
	require.NoError(t, err)

	tau, err := m.RelaxationTime(State{Alt: 0}, calm(0))
	require.NoError(t, err)
	assert.InDelta(t, 5/(2*atmosphere.Gravity), tau, 1e-12)

	// falling faster than terminal stiffens the equation
	fast, err := m.RelaxationTime(State{Alt: 0, VerticalSpeed: -50}, calm(0))
	require.NoError(t, err)
	assert.Less(t, fast, tau)
}
