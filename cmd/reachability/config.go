package reachability

import (
	"fmt"

	"github.com/picogrid/descent-simulations/pkg/simulation"
)

// Config holds the configuration for a reachability sweep
type Config struct {
	ScenarioFile string
	// Overrides are applied on top of the scenario file
	Overrides  map[string]interface{}
	SaveReport bool
}

// ValidateAndParse validates and parses the raw parameters into a Config
func ValidateAndParse(params map[string]interface{}) (*Config, error) {
	config := &Config{Overrides: make(map[string]interface{})}

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

	// a sweep without lift has nothing to steer
	glide, ok, err := simulation.Float(params, "glide_ratio")
	if err != nil {
		return nil, err
	}
	if ok {
		if glide <= 0 || glide > 50 {
			return nil, fmt.Errorf("glide_ratio must be greater than 0 and at most 50")
		}
		config.Overrides["glide_ratio"] = glide
	}

	headings, ok, err := simulation.IntIn(params, "headings", 1, 3600)
	if err != nil {
		return nil, err
	}
	if ok {
		config.Overrides["headings"] = headings
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
