package ensemble

import (
	"fmt"
	"math"

	"github.com/picogrid/descent-simulations/pkg/simulation"
)

// Config holds the configuration for a Monte Carlo ensemble
type Config struct {
	ScenarioFile string
	// Overrides are applied on top of the scenario file
	Overrides  map[string]interface{}
	SaveReport bool
	// Progress draws a progress bar while the ensemble runs
	Progress bool
}

// ValidateAndParse validates and parses the raw parameters into a Config
func ValidateAndParse(params map[string]interface{}) (*Config, error) {
	config := &Config{Overrides: make(map[string]interface{}), Progress: true}

	if v, ok := simulation.String(params, "scenario_file"); ok {
		config.ScenarioFile = v
	}

	v, ok, err := simulation.FloatIn(params, "release_altitude", 1, 60000)
	if err != nil {
		return nil, err
	}
	if ok {
		config.Overrides["release_altitude"] = v
	}

	ints := []struct {
		name     string
		min, max int
	}{
		{"runs", 1, 100000},
		{"workers", 0, 1024},
		{"seed", 0, math.MaxInt32},
	}
	for _, i := range ints {
		n, ok, err := simulation.IntIn(params, i.name, i.min, i.max)
		if err != nil {
			return nil, err
		}
		if ok {
			config.Overrides[i.name] = n
		}
	}

	floats := []struct {
		name     string
		min, max float64
	}{
		{"position_sigma", 0, 100000},
		{"altitude_sigma", 0, 10000},
		{"failure_threshold", 0, 1},
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

	jitter, ok, err := simulation.Duration(params, "time_jitter")
	if err != nil {
		return nil, err
	}
	if ok {
		if jitter < 0 {
			return nil, fmt.Errorf("time_jitter must not be negative")
		}
		config.Overrides["time_jitter"] = jitter
	}

	if d, ok := simulation.String(params, "distribution"); ok {
		if d != "normal" && d != "uniform" {
			return nil, fmt.Errorf("distribution must be one of: normal, uniform")
		}
		config.Overrides["distribution"] = d
	}

	save, ok, err := simulation.Bool(params, "save_report")
	if err != nil {
		return nil, err
	}
	if ok {
		config.SaveReport = save
	}

	progress, ok, err := simulation.Bool(params, "progress")
	if err != nil {
		return nil, err
	}
	if ok {
		config.Progress = progress
	}

	return config, nil
}
