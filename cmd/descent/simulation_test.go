package descent

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/scenario"
	"github.com/picogrid/descent-simulations/pkg/simulation"
	"github.com/picogrid/descent-simulations/pkg/utils"
)

func TestValidateAndParse(t *testing.T) {
	cfg, err := ValidateAndParse(map[string]interface{}{
		"scenario_file":    "drop.yaml",
		"release_altitude": 12000,
		"release_time":     "2026-03-01T06:00:00Z",
		"glide_ratio":      3.0,
		"heading":          270.0,
		"method":           "Midpoint",
		"save_report":      true,
	})
	require.NoError(t, err)

	assert.Equal(t, "drop.yaml", cfg.ScenarioFile)
	assert.Equal(t, 12000.0, cfg.Overrides["release_altitude"])
	assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), cfg.Overrides["release_time"])
	assert.Equal(t, 270.0, cfg.Overrides["heading"])
	assert.Equal(t, "midpoint", cfg.Overrides["method"])
	assert.Equal(t, 10, cfg.TrajectoryEvery)
	assert.True(t, cfg.SaveReport)
	assert.NotContains(t, cfg.Overrides, "release_latitude")

	tests := []struct {
		name   string
		params map[string]interface{}
		want   string
	}{
		{"latitude range", map[string]interface{}{"release_latitude": 91.0}, "release_latitude"},
		{"altitude type", map[string]interface{}{"release_altitude": "high"}, "release_altitude must be a number"},
		{"release time", map[string]interface{}{"release_time": "tomorrow"}, "RFC 3339"},
		{"method", map[string]interface{}{"method": "euler"}, "unknown integration method"},
		{"save flag", map[string]interface{}{"save_report": 3}, "save_report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAndParse(tt.params)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRun(t *testing.T) {
	provider, err := atmosphere.NewUniformProvider(10, 90, 40000)
	require.NoError(t, err)

	sim := NewDescentSimulation()
	assert.Equal(t, Name, sim.Name())
	require.NoError(t, sim.Configure(map[string]interface{}{
		"release_latitude":  50.0,
		"release_longitude": 10.0,
		"release_altitude":  1000.0,
		"save_report":       true,
	}))

	var out bytes.Buffer
	dir := t.TempDir()
	env := &simulation.Environment{
		Provider:     provider,
		Dataset:      "uniform",
		Logger:       logger.Discard(),
		Output:       &out,
		ReportDir:    dir,
		ReportFormat: "json",
	}
	require.NoError(t, sim.Run(context.Background(), env))

	cfg, res := sim.(*DescentSimulation).Result()
	require.NotNil(t, res)
	assert.Equal(t, 1000.0, cfg.Release.Altitude)
	assert.Equal(t, integrator.Landed, res.Status)
	require.NotNil(t, res.Landing)
	assert.InDelta(t, 90, res.Landing.Bearing, 1)
	assert.InDelta(t, 10*res.Landing.FlightDuration.Seconds(), res.Landing.Distance, 0.02*res.Landing.Distance)

	assert.Contains(t, out.String(), "Descent")
	assert.Contains(t, out.String(), "Landing")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
}

func TestRunErrors(t *testing.T) {
	sim := NewDescentSimulation()
	assert.ErrorContains(t, sim.Run(context.Background(), nil), "not configured")

	// the scenario names a dataset nobody can load
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: gridded\ndataset: gfs\nwind:\n  - top: 40000\n    speed: 0\n"), 0644))
	require.NoError(t, sim.Configure(map[string]interface{}{"scenario_file": path}))
	err := sim.Run(context.Background(), &simulation.Environment{Logger: logger.Discard(), Output: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "dataset")

	assert.NoError(t, sim.Stop())
}

func TestUnsetParametersKeepScenarioValues(t *testing.T) {
	info, err := simulation.LoadSimulationConfig("simulation.yaml")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: payload
release:
  latitude: 12
  longitude: 34
  altitude: 8000
  time: 2026-03-01T06:00:00Z
profile:
  mass: 20
  reference_area: 0.5
  drag_coefficient: 1.2
integration:
  method: midpoint
`), 0644))

	params, err := utils.ResolveParameters(info.Parameters)
	require.NoError(t, err)
	params["scenario_file"] = path

	cfg, err := ValidateAndParse(params)
	require.NoError(t, err)
	assert.Empty(t, cfg.Overrides, "unanswered parameters are left out")

	loaded, err := scenario.LoadConfigWithOverrides(cfg.ScenarioFile, cfg.Overrides)
	require.NoError(t, err)
	assert.Equal(t, 12.0, loaded.Release.Latitude)
	assert.Equal(t, 34.0, loaded.Release.Longitude)
	assert.Equal(t, 8000.0, loaded.Release.Altitude)
	assert.Equal(t, 20.0, loaded.Profile.Mass)
	assert.Zero(t, loaded.Profile.TerminalVelocity)
	assert.Equal(t, integrator.Midpoint, loaded.Integration.Method)
}
