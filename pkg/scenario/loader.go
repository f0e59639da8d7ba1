package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/logger"
)

// LoadConfig loads a scenario from a YAML file
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Template()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	config.FillProfileDefaults()
	if config.Dataset == "" && len(config.Wind) == 0 {
		config.Wind = GetDefaultConfig().Wind
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadConfigOrDefault loads the scenario at path. Without a path it falls
// back to the default locations and then to GetDefaultConfig. Environment
// overrides are always applied.
func LoadConfigOrDefault(path string) (*Config, error) {
	var config *Config

	if path != "" {
		var err error
		if config, err = LoadConfig(path); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", path, err)
		}
	}

	if config == nil {
		for _, p := range []string{
			"scenario.yaml",
			"descent.yaml",
			filepath.Join(".descent-sim", "scenario.yaml"),
		} {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			loaded, err := LoadConfig(p)
			if err != nil {
				logger.Warnf("Skipping scenario %s: %v", p, err)
				continue
			}
			logger.Debugf("Loaded scenario from: %s", p)
			config = loaded
			break
		}
	}

	if config == nil {
		logger.Debug("Using default scenario")
		config = GetDefaultConfig()
	}

	MergeWithEnvironment(config)
	return config, nil
}

// SaveConfig writes a validated scenario to a YAML file
func SaveConfig(config *Config, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// MergeWithCLIOverrides applies parsed simulation parameters to the
// configuration. Unknown keys and values of the wrong type are ignored.
func MergeWithCLIOverrides(config *Config, overrides map[string]interface{}) {
	headingSet := false
	for key, value := range overrides {
		switch key {
		case "release_latitude":
			if v, ok := value.(float64); ok {
				config.Release.Latitude = v
			}
		case "release_longitude":
			if v, ok := value.(float64); ok {
				config.Release.Longitude = v
			}
		case "release_altitude":
			if v, ok := value.(float64); ok && v > 0 {
				config.Release.Altitude = v
			}
		case "release_time":
			switch v := value.(type) {
			case time.Time:
				config.Release.Time = v
			case string:
				if t, err := time.Parse(time.RFC3339, v); err == nil {
					config.Release.Time = t
				}
			}
		case "vertical_speed":
			if v, ok := value.(float64); ok {
				config.Release.VerticalSpeed = v
			}
		case "terminal_velocity":
			if v, ok := value.(float64); ok && v > 0 {
				config.Profile.TerminalVelocity = v
			}
		case "mass":
			if v, ok := value.(float64); ok && v > 0 {
				config.Profile.Mass = v
			}
		case "reference_area":
			if v, ok := value.(float64); ok && v > 0 {
				config.Profile.ReferenceArea = v
			}
		case "drag_coefficient":
			if v, ok := value.(float64); ok && v > 0 {
				config.Profile.DragCoefficient = v
			}
		case "glide_ratio":
			if v, ok := value.(float64); ok && v >= 0 {
				config.Profile.GlideRatio = v
			}
		case "heading":
			if v, ok := value.(float64); ok {
				config.Profile.Guidance.Heading = v
				headingSet = true
			}
		case "method":
			if v, ok := value.(string); ok {
				if m, err := integrator.ParseMethod(v); err == nil {
					config.Integration.Method = m
				}
			}
		case "ground_elevation":
			if v, ok := value.(float64); ok {
				config.Integration.GroundElevation = v
			}
		case "runs":
			if v, ok := value.(int); ok && v > 0 {
				config.Ensemble.Runs = v
			}
		case "workers":
			if v, ok := value.(int); ok && v >= 0 {
				config.Ensemble.Workers = v
			}
		case "seed":
			if v, ok := value.(int); ok && v >= 0 {
				config.Ensemble.Seed = uint64(v)
			}
		case "failure_threshold":
			if v, ok := value.(float64); ok && v >= 0 && v <= 1 {
				config.Ensemble.FailureThreshold = v
			}
		case "position_sigma":
			if v, ok := value.(float64); ok && v >= 0 {
				config.Ensemble.Perturbation.PositionSigma = v
			}
		case "altitude_sigma":
			if v, ok := value.(float64); ok && v >= 0 {
				config.Ensemble.Perturbation.AltitudeSigma = v
			}
		case "time_jitter":
			if v, ok := value.(time.Duration); ok && v >= 0 {
				config.Ensemble.Perturbation.TimeJitter = v
			}
		case "distribution":
			if v, ok := value.(string); ok && (Distribution(v) == Normal || Distribution(v) == Uniform) {
				config.Ensemble.Perturbation.Distribution = Distribution(v)
			}
		case "headings":
			if v, ok := value.(int); ok && v > 0 {
				config.Reachability.Headings = v
			}
		case "dataset":
			if v, ok := value.(string); ok {
				config.Dataset = v
			}
		case "log_level":
			if level, ok := value.(string); ok {
				if l := strings.ToLower(level); validLevel(l) {
					config.Logging.ConsoleLevel = l
				}
			}
		}
	}
	if headingSet && config.Profile.GlideRatio > 0 {
		config.Profile.Guidance.Mode = dynamics.GuidanceHeading
	}
}

// LoadConfigWithOverrides loads a scenario and applies environment and CLI
// overrides, in that order
func LoadConfigWithOverrides(path string, cliOverrides map[string]interface{}) (*Config, error) {
	config, err := LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	if cliOverrides != nil {
		MergeWithCLIOverrides(config, cliOverrides)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}
	return config, nil
}

// MergeWithEnvironment applies DESCENT_* environment variables
func MergeWithEnvironment(config *Config) {
	floatVar := func(name string, set func(float64)) {
		if raw := os.Getenv(name); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				set(v)
			}
		}
	}
	intVar := func(name string, set func(int)) {
		if raw := os.Getenv(name); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
				set(v)
			}
		}
	}

	floatVar("DESCENT_RELEASE_LATITUDE", func(v float64) { config.Release.Latitude = v })
	floatVar("DESCENT_RELEASE_LONGITUDE", func(v float64) { config.Release.Longitude = v })
	floatVar("DESCENT_RELEASE_ALTITUDE", func(v float64) { config.Release.Altitude = v })
	floatVar("DESCENT_TERMINAL_VELOCITY", func(v float64) { config.Profile.TerminalVelocity = v })
	floatVar("DESCENT_GLIDE_RATIO", func(v float64) { config.Profile.GlideRatio = v })
	floatVar("DESCENT_GROUND_ELEVATION", func(v float64) { config.Integration.GroundElevation = v })
	floatVar("DESCENT_FAILURE_THRESHOLD", func(v float64) {
		if v >= 0 && v <= 1 {
			config.Ensemble.FailureThreshold = v
		}
	})

	if raw := os.Getenv("DESCENT_RELEASE_TIME"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			config.Release.Time = t
		}
	}
	if raw := os.Getenv("DESCENT_METHOD"); raw != "" {
		if m, err := integrator.ParseMethod(raw); err == nil {
			config.Integration.Method = m
		}
	}
	if raw := os.Getenv("DESCENT_MAX_FLIGHT_TIME"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			config.Integration.MaxFlightTime = d
		}
	}

	intVar("DESCENT_ENSEMBLE_RUNS", func(v int) {
		if v > 0 {
			config.Ensemble.Runs = v
		}
	})
	intVar("DESCENT_WORKER_POOL_SIZE", func(v int) { config.Ensemble.Workers = v })
	intVar("DESCENT_SEED", func(v int) { config.Ensemble.Seed = uint64(v) })

	if dataset := os.Getenv("DESCENT_DATASET"); dataset != "" {
		config.Dataset = dataset
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if l := strings.ToLower(level); validLevel(l) {
			config.Logging.ConsoleLevel = l
		}
	}
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
