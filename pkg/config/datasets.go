// Package config keeps the registry of named atmospheric datasets
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Dataset is a grid file registered under a short name
type Dataset struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// Config holds the registered datasets
type Config struct {
	Datasets []Dataset `yaml:"datasets"`
	Selected string    `yaml:"selected,omitempty"`
}

// DefaultPath is $HOME/.descent-sim/datasets.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".descent-sim", "datasets.yaml"), nil
}

// LoadDatasets loads the dataset registry from the default location
func LoadDatasets() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadDatasetsFromFile(path)
}

// LoadDatasetsFromFile loads the dataset registry from a specific file. A
// missing file is an empty registry.
func LoadDatasetsFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// SaveDatasets saves the registry to the default location
func SaveDatasets(config *Config) error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return SaveDatasetsToFile(config, path)
}

// SaveDatasetsToFile saves the registry to path
func SaveDatasetsToFile(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Find returns the dataset registered as name
func (c *Config) Find(name string) (Dataset, bool) {
	for _, d := range c.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// Add registers d, replacing any dataset with the same name. Datasets are
// kept sorted by name.
func (c *Config) Add(d Dataset) error {
	if d.Name == "" || d.Path == "" {
		return fmt.Errorf("dataset needs a name and a path")
	}
	for i := range c.Datasets {
		if c.Datasets[i].Name == d.Name {
			c.Datasets[i] = d
			return nil
		}
	}
	c.Datasets = append(c.Datasets, d)
	sort.Slice(c.Datasets, func(i, j int) bool { return c.Datasets[i].Name < c.Datasets[j].Name })
	return nil
}

// Remove drops the dataset registered as name and clears the selection if
// it pointed there
func (c *Config) Remove(name string) error {
	for i, d := range c.Datasets {
		if d.Name == name {
			c.Datasets = append(c.Datasets[:i], c.Datasets[i+1:]...)
			if c.Selected == name {
				c.Selected = ""
			}
			return nil
		}
	}
	return fmt.Errorf("dataset %s not found", name)
}

// Names returns the registered dataset names
func (c *Config) Names() []string {
	names := make([]string, len(c.Datasets))
	for i, d := range c.Datasets {
		names[i] = d.Name
	}
	return names
}
