package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, 50.0, config.Release.Latitude)
	assert.Equal(t, 30000.0, config.Release.Altitude)
	assert.Equal(t, 5.0, config.Profile.TerminalVelocity)
	assert.Equal(t, integrator.RK4, config.Integration.Method)
	assert.Equal(t, 100, config.Ensemble.Runs)
	assert.Equal(t, 36, config.Reachability.Headings)
	assert.Equal(t, "info", config.Logging.ConsoleLevel)
	assert.Zero(t, config.Release.Time.Minute())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"latitude out of range", func(c *Config) { c.Release.Latitude = 91 }, "release.latitude"},
		{"release below ground", func(c *Config) {
			c.Release.Altitude = 100
			c.Integration.GroundElevation = 200
		}, "release.altitude"},
		{"missing release time", func(c *Config) { c.Release.Time = time.Time{} }, "release.time"},
		{"no drag", func(c *Config) { c.Profile.TerminalVelocity = 0 }, "profile.mass"},
		{"negative runs", func(c *Config) { c.Ensemble.Runs = -1 }, "ensemble.runs"},
		{"threshold above one", func(c *Config) { c.Ensemble.FailureThreshold = 1.5 }, "ensemble.failure_threshold"},
		{"mass fraction too large", func(c *Config) { c.Ensemble.Perturbation.MassFraction = 0.8 }, "ensemble.perturbation.mass_fraction"},
		{"negative position sigma", func(c *Config) { c.Ensemble.Perturbation.PositionSigma = -1 }, "ensemble.perturbation.position_sigma"},
		{"unknown distribution", func(c *Config) { c.Ensemble.Perturbation.Distribution = "cauchy" }, "ensemble.perturbation.distribution"},
		{"bad method", func(c *Config) { c.Integration.Method = "euler" }, "integration.method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			tt.modify(config)

			err := config.Validate()
			require.Error(t, err)
			var verr *simerr.ValidationError
			require.True(t, errors.As(err, &verr), "got %T", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestConfigString(t *testing.T) {
	config := GetDefaultConfig()
	config.Profile.GlideRatio = 3
	config.Profile.Guidance.Mode = dynamics.GuidanceHeading

	s := config.String()
	assert.Contains(t, s, "Name: descent")
	assert.Contains(t, s, "1 wind layers")
	assert.Contains(t, s, "terminal velocity 5.0 m/s")
	assert.Contains(t, s, "L/D 3.0, guidance heading")
	assert.Contains(t, s, "50.0000, -2.0000")
}

func TestLoadAndSaveConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "scenario.yaml")

	config := GetDefaultConfig()
	config.Name = "round-trip"
	config.Release.Time = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	config.Ensemble.Perturbation.Distribution = Uniform
	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "round-trip", loaded.Name)
	assert.True(t, config.Release.Time.Equal(loaded.Release.Time))
	assert.Equal(t, Uniform, loaded.Ensemble.Perturbation.Distribution)
	assert.Equal(t, config.Wind, loaded.Wind)
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: partial
release:
  latitude: 10
  longitude: 170
  altitude: 12000
  time: 2026-03-01T06:00:00Z
profile:
  mass: 2
  reference_area: 0.5
  drag_coefficient: 1.2
integration:
  method: midpoint
  ground_elevation: 50
`), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "partial", config.Name)
	assert.Equal(t, integrator.Midpoint, config.Integration.Method)
	assert.Equal(t, 50.0, config.Integration.GroundElevation)
	assert.Equal(t, 2.0, config.Profile.Mass)
	assert.Zero(t, config.Profile.TerminalVelocity, "drag comes from mass, area and drag coefficient")
	assert.Equal(t, "default", config.Profile.Name)
	assert.Equal(t, dynamics.GuidanceNone, config.Profile.Guidance.Mode)
	assert.Len(t, config.Wind, 1, "default calm layer when no wind is given")
	assert.Equal(t, 100, config.Ensemble.Runs, "unset sections keep their defaults")
}

func TestLoadConfigProfileDefaults(t *testing.T) {
	dir := t.TempDir()
	write := func(name, doc string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
		return path
	}

	config, err := LoadConfig(write("no-profile.yaml", "name: calm\n"))
	require.NoError(t, err)
	assert.Equal(t, 5.0, config.Profile.TerminalVelocity)

	config, err = LoadConfig(write("glider.yaml", "profile:\n  glide_ratio: 3\n  guidance:\n    mode: heading\n    heading: 90\n"))
	require.NoError(t, err)
	assert.Equal(t, 5.0, config.Profile.TerminalVelocity, "no drag given keeps the default")
	assert.Equal(t, 3.0, config.Profile.GlideRatio)

	_, err = LoadConfig(write("half.yaml", "profile:\n  mass: 2\n"))
	assert.ErrorContains(t, err, "profile.reference_area")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config file not found")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("release:\n  latitude: 95\n"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestMergeWithCLIOverrides(t *testing.T) {
	config := GetDefaultConfig()
	MergeWithCLIOverrides(config, map[string]interface{}{
		"release_latitude":  45.5,
		"release_altitude":  20000.0,
		"release_time":      "2026-03-01T12:00:00Z",
		"terminal_velocity": 7.0,
		"glide_ratio":       2.0,
		"heading":           270.0,
		"method":            "midpoint",
		"runs":              25,
		"seed":              9,
		"log_level":         "DEBUG",
		"headings":          "ignored",
		"unknown":           1,
	})

	assert.Equal(t, 45.5, config.Release.Latitude)
	assert.Equal(t, 20000.0, config.Release.Altitude)
	assert.Equal(t, 12, config.Release.Time.Hour())
	assert.Equal(t, 7.0, config.Profile.TerminalVelocity)
	assert.Equal(t, dynamics.GuidanceHeading, config.Profile.Guidance.Mode)
	assert.Equal(t, 270.0, config.Profile.Guidance.Heading)
	assert.Equal(t, integrator.Midpoint, config.Integration.Method)
	assert.Equal(t, 25, config.Ensemble.Runs)
	assert.Equal(t, uint64(9), config.Ensemble.Seed)
	assert.Equal(t, "debug", config.Logging.ConsoleLevel)
	assert.Equal(t, 36, config.Reachability.Headings)
}

func TestMergeWithEnvironment(t *testing.T) {
	t.Setenv("DESCENT_RELEASE_LATITUDE", "-33.5")
	t.Setenv("DESCENT_TERMINAL_VELOCITY", "4.5")
	t.Setenv("DESCENT_ENSEMBLE_RUNS", "12")
	t.Setenv("DESCENT_FAILURE_THRESHOLD", "2")
	t.Setenv("DESCENT_MAX_FLIGHT_TIME", "3h")
	t.Setenv("DESCENT_DATASET", "gfs-sample")
	t.Setenv("LOG_LEVEL", "warn")

	config := GetDefaultConfig()
	MergeWithEnvironment(config)

	assert.Equal(t, -33.5, config.Release.Latitude)
	assert.Equal(t, 4.5, config.Profile.TerminalVelocity)
	assert.Equal(t, 12, config.Ensemble.Runs)
	assert.Equal(t, 0.1, config.Ensemble.FailureThreshold, "out of range values are ignored")
	assert.Equal(t, 3*time.Hour, config.Integration.MaxFlightTime)
	assert.Equal(t, "gfs-sample", config.Dataset)
	assert.Equal(t, "warn", config.Logging.ConsoleLevel)
}

func TestLoadConfigWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	config := GetDefaultConfig()
	config.Name = "override"
	require.NoError(t, SaveConfig(config, path))

	t.Setenv("DESCENT_SEED", "3")
	loaded, err := LoadConfigWithOverrides(path, map[string]interface{}{"seed": 4})
	require.NoError(t, err)
	assert.Equal(t, "override", loaded.Name)
	assert.Equal(t, uint64(4), loaded.Ensemble.Seed, "flags win over the environment")

	_, err = LoadConfigWithOverrides(path, map[string]interface{}{"release_latitude": 120.0})
	assert.ErrorContains(t, err, "validation failed after overrides")
}

func TestLoadConfigOrDefaultRejectsNamedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("release:\n  latitude: 95\n"), 0644))

	config, err := LoadConfigOrDefault(path)
	assert.Nil(t, config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	var verr *simerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "release.latitude", verr.Field)

	_, err = LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config file not found")

	t.Chdir(t.TempDir())
	config, err = LoadConfigOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig().Release.Latitude, config.Release.Latitude)
}
