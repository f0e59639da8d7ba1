package simulation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SimulationConfig represents the configuration structure for a simulation
// loaded from simulation.yaml
type SimulationConfig struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Version     string      `yaml:"version"`
	Category    string      `yaml:"category"`
	Parameters  []Parameter `yaml:"parameters"`
}

// Parameter defines a configurable parameter for a simulation
type Parameter struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"` // integer, float, string, duration, boolean
	Description string      `yaml:"description"`
	Default     interface{} `yaml:"default"`
	Required    bool        `yaml:"required"`
	Min         interface{} `yaml:"min,omitempty"`
	Max         interface{} `yaml:"max,omitempty"`
	Options     []string    `yaml:"options,omitempty"` // For string enums
}

// LoadSimulationConfig reads a simulation.yaml file
func LoadSimulationConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation config: %w", err)
	}

	var config SimulationConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse simulation config: %w", err)
	}
	if config.Name == "" {
		return nil, fmt.Errorf("simulation config %s has no name", path)
	}
	for _, p := range config.Parameters {
		switch p.Type {
		case "integer", "float", "string", "duration", "boolean":
		default:
			return nil, fmt.Errorf("parameter %s: unsupported type %q", p.Name, p.Type)
		}
	}
	return &config, nil
}

// Defaults returns the default value of every parameter that has one
func (c *SimulationConfig) Defaults() map[string]interface{} {
	out := make(map[string]interface{}, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}
