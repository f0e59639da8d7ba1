package integrator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

var release = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func model(t *testing.T, vt float64) *dynamics.Model {
	t.Helper()
	m, err := dynamics.NewModel(dynamics.Profile{TerminalVelocity: vt})
	require.NoError(t, err)
	return m
}

func integrator(t *testing.T, opts Options) *Integrator {
	t.Helper()
	in, err := New(opts)
	require.NoError(t, err)
	return in
}

// windGrid is a regional grid whose wind veers and strengthens with height
func windGrid(t *testing.T) *atmosphere.Grid {
	t.Helper()
	g, err := atmosphere.NewGridBuilder(release.Add(-6*time.Hour),
		[]float64{0, 6, 12},
		atmosphere.StandardLevels(),
		[]float64{40, 45, 50, 55, 60},
		[]float64{350, 355, 360, 365, 370},
	).Build(func(n atmosphere.Node) atmosphere.NodeValues {
		return atmosphere.NodeValues{
			U: 8 + 0.001*n.Altitude + 0.1*(n.Lat-50),
			V: 2 - 0.0002*n.Altitude + 0.05*n.Hour,
		}
	})
	require.NoError(t, err)
	return g
}

func TestZeroWindLandsBelowRelease(t *testing.T) {
	calm, err := atmosphere.NewUniformProvider(0, 0, 40000)
	require.NoError(t, err)

	start := dynamics.State{Lat: 50, Lon: -2, Alt: 30000, Time: release}
	res := integrator(t, Options{}).Integrate(model(t, 5), calm, start)

	require.Equal(t, Landed, res.Status, "run aborted: %v", res.Err)
	require.NotNil(t, res.Landing)
	assert.InDelta(t, 50.0, res.Landing.Lat, 1e-12)
	assert.InDelta(t, -2.0, geo.SignedLongitude(res.Landing.Lon), 1e-12)
	assert.Equal(t, 0.0, res.Landing.Alt)
	assert.InDelta(t, 0.0, res.Landing.Distance, 1e-6)
	assert.True(t, res.Landing.Time.After(start.Time))

	assert.InEpsilon(t, settledDuration(5, 30000), res.Landing.FlightDuration.Seconds(), 0.01)
}

// settledDuration is the flight time from top to the ground at terminal
// velocity all the way down, the integral of dh / vt(h)
func settledDuration(vt0, top float64) float64 {
	rate := func(z float64) float64 {
		return 1 / (vt0 * math.Sqrt(atmosphere.SeaLevelDensity/atmosphere.StandardDensity(z)))
	}
	var d float64
	const dh = 1.0
	for h := 0.0; h < top; h += dh {
		d += dh * (rate(h) + rate(h+dh)) / 2
	}
	return d
}

func TestSlowDescentLandsWithinStepBudget(t *testing.T) {
	calm, err := atmosphere.NewUniformProvider(0, 0, 40000)
	require.NoError(t, err)
	start := dynamics.State{Lat: 50, Lon: -2, Alt: 30000, Time: release}

	for _, method := range []Method{RK4, Midpoint} {
		t.Run(string(method), func(t *testing.T) {
			in := integrator(t, Options{Method: method})
			res := in.Integrate(model(t, 0.8), calm, start)
			require.Equal(t, Landed, res.Status, "run aborted: %v", res.Err)
			assert.Less(t, res.Steps, in.Options().MaxSteps)
			assert.Less(t, res.Landing.FlightDuration, in.Options().MaxFlightTime)
			assert.InEpsilon(t, settledDuration(0.8, 30000), res.Landing.FlightDuration.Seconds(), 0.02)
			assert.InDelta(t, -0.8, res.Landing.VerticalSpeed, 0.05)
		})
	}
}

func TestAltitudeNeverIncreasesWithoutUpdraft(t *testing.T) {
	provider := atmosphere.NewGridProvider(windGrid(t))
	res := integrator(t, Options{}).Integrate(model(t, 8), provider,
		dynamics.State{Lat: 50, Lon: 0, Alt: 25000, Time: release})
	require.Equal(t, Landed, res.Status, "run aborted: %v", res.Err)

	points := res.Trajectory.Points()
	require.Greater(t, len(points), 100)
	for i := 1; i < len(points); i++ {
		require.LessOrEqual(t, points[i].Alt, points[i-1].Alt, "altitude rose at point %d", i)
		require.True(t, points[i].Time.After(points[i-1].Time))
	}
}

func TestLandingInterpolatedAtTerrain(t *testing.T) {
	calm, err := atmosphere.NewUniformProvider(0, 0, 40000)
	require.NoError(t, err)

	in := integrator(t, Options{Ground: FlatTerrain{Height: 120}})
	res := in.Integrate(model(t, 6), calm, dynamics.State{Lat: 10, Lon: 20, Alt: 1000, VerticalSpeed: -6, Time: release})
	require.Equal(t, Landed, res.Status)

	points := res.Trajectory.Points()
	last := points[len(points)-1]
	assert.Equal(t, 120.0, last.Alt)
	assert.Equal(t, 120.0, res.Landing.Alt)
	assert.Greater(t, points[len(points)-2].Alt, 120.0)

	// 880 m at a sink rate easing from 6.3 to 6 m/s
	assert.InDelta(t, 143, res.Landing.FlightDuration.Seconds(), 2.5)
}

func TestDriftFollowsWind(t *testing.T) {
	wind, err := atmosphere.NewUniformProvider(10, 90, 40000)
	require.NoError(t, err)

	res := integrator(t, Options{}).Integrate(model(t, 5), wind,
		dynamics.State{Lat: 0, Lon: 30, Alt: 2000, Time: release})
	require.Equal(t, Landed, res.Status)

	east, north := geo.LocalOffset(geo.Point{Lat: 0, Lon: 30}, res.Landing.Point())
	assert.InEpsilon(t, 10*res.Landing.FlightDuration.Seconds(), east, 0.01)
	assert.InDelta(t, 0.0, north, 1)
	assert.InDelta(t, 90.0, res.Landing.Bearing, 0.5)
}

func TestLandingConvergesWithSmallerSteps(t *testing.T) {
	provider := atmosphere.NewGridProvider(windGrid(t))
	start := dynamics.State{Lat: 50, Lon: -2, Alt: 30000, Time: release}
	m := model(t, 15)

	coarse := integrator(t, Options{}).Integrate(m, provider, start)
	fine := integrator(t, Options{
		MaxStep:   10 * time.Second,
		MinStep:   125 * time.Millisecond,
		FineStep:  time.Second,
		Tolerance: 0.25,
	}).Integrate(m, provider, start)
	require.Equal(t, Landed, coarse.Status, "coarse run aborted: %v", coarse.Err)
	require.Equal(t, Landed, fine.Status, "fine run aborted: %v", fine.Err)

	assert.Greater(t, coarse.Landing.Distance, 5000.0, "scenario should drift a long way")
	assert.Less(t, geo.Distance(coarse.Landing.Point(), fine.Landing.Point()), 25.0)
	assert.InDelta(t, coarse.Landing.FlightDuration.Seconds(), fine.Landing.FlightDuration.Seconds(), 2)

	mid := integrator(t, Options{Method: Midpoint}).Integrate(m, provider, start)
	require.Equal(t, Landed, mid.Status)
	assert.Less(t, geo.Distance(coarse.Landing.Point(), mid.Landing.Point()), 100.0)
}

func TestOutOfBoundsAbortsRun(t *testing.T) {
	g, err := atmosphere.CalmGrid(release, 12, -85, 85, 0, 359)
	require.NoError(t, err)

	res := integrator(t, Options{}).Integrate(model(t, 5), atmosphere.NewGridProvider(g),
		dynamics.State{Lat: 89.9, Lon: 0, Alt: 20000, Time: release})

	assert.Equal(t, Aborted, res.Status)
	assert.Equal(t, simerr.ReasonOutOfBounds, res.Reason)
	assert.Nil(t, res.Landing)
	assert.Equal(t, 1, res.Trajectory.Len())

	var oob *simerr.OutOfBoundsError
	require.True(t, errors.As(res.Err, &oob))
	assert.Equal(t, "latitude", oob.Axis)
	assert.Contains(t, res.Err.Error(), "89.9")
}

func TestRunTimeout(t *testing.T) {
	calm, err := atmosphere.NewUniformProvider(0, 0, 40000)
	require.NoError(t, err)
	start := dynamics.State{Lat: 50, Lon: 0, Alt: 30000, Time: release}

	t.Run("simulated time", func(t *testing.T) {
		res := integrator(t, Options{MaxFlightTime: 5 * time.Minute}).Integrate(model(t, 5), calm, start)
		assert.Equal(t, Aborted, res.Status)
		assert.Equal(t, simerr.ReasonTimeout, res.Reason)

		var timeout *simerr.RunTimeoutError
		require.True(t, errors.As(res.Err, &timeout))
		assert.Greater(t, timeout.Elapsed, timeout.Ceiling)
		assert.Greater(t, res.Elapsed(), 5*time.Minute)
	})

	t.Run("step budget", func(t *testing.T) {
		res := integrator(t, Options{MaxSteps: 10}).Integrate(model(t, 5), calm, start)
		assert.Equal(t, Aborted, res.Status)
		assert.Equal(t, 10, res.Steps)

		var timeout *simerr.RunTimeoutError
		require.True(t, errors.As(res.Err, &timeout))
		assert.Equal(t, 10, timeout.Steps)
		assert.Contains(t, timeout.Error(), "10 steps")
	})
}

func TestReleaseBelowGround(t *testing.T) {
	calm, err := atmosphere.NewUniformProvider(0, 0, 40000)
	require.NoError(t, err)

	res := integrator(t, Options{Ground: FlatTerrain{Height: 500}}).Integrate(model(t, 5), calm,
		dynamics.State{Lat: 0, Lon: 0, Alt: 400, Time: release})
	assert.Equal(t, Aborted, res.Status)
	assert.Equal(t, simerr.ReasonValidation, res.Reason)
	assert.Equal(t, 0, res.Trajectory.Len())
}
