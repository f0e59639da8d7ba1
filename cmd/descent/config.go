package descent

import (
	"fmt"
	"time"

	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/simulation"
)

// Config holds the configuration for a single descent prediction
type Config struct {
	ScenarioFile string
	// Overrides are applied on top of the scenario file
	Overrides map[string]interface{}
	// TrajectoryEvery keeps every n-th state in a saved report; -1 drops
	// the trajectory
	TrajectoryEvery int
	SaveReport      bool
}

// ValidateAndParse validates and parses the raw parameters into a Config
func ValidateAndParse(params map[string]interface{}) (*Config, error) {
	config := &Config{Overrides: make(map[string]interface{}), TrajectoryEvery: 10}

	if v, ok := simulation.String(params, "scenario_file"); ok {
		config.ScenarioFile = v
	}

	floats := []struct {
		name     string
		min, max float64
	}{
		{"release_latitude", -90, 90},
		{"release_longitude", -180, 360},
		{"release_altitude", 1, 60000},
		{"terminal_velocity", 0.1, 500},
		{"glide_ratio", 0, 50},
		{"heading", 0, 360},
	}
	for _, f := range floats {
		v, ok, err := simulation.FloatIn(params, f.name, f.min, f.max)
		if err != nil {
			return nil, err
		}
		if ok {
			config.Overrides[f.name] = v
		}
	}

	if v, ok := simulation.String(params, "release_time"); ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("release_time must be RFC 3339: %w", err)
		}
		config.Overrides["release_time"] = t.UTC()
	}

	if v, ok := simulation.String(params, "method"); ok {
		m, err := integrator.ParseMethod(v)
		if err != nil {
			return nil, err
		}
		config.Overrides["method"] = string(m)
	}

	n, ok, err := simulation.IntIn(params, "trajectory_every", -1, 100000)
	if err != nil {
		return nil, err
	}
	if ok {
		config.TrajectoryEvery = n
	}

	save, ok, err := simulation.Bool(params, "save_report")
	if err != nil {
		return nil, err
	}
	if ok {
		config.SaveReport = save
	}

	return config, nil
}
