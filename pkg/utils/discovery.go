package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/simulation"
)

// SimulationInfo contains information about a discovered simulation
type SimulationInfo struct {
	Path   string
	Config simulation.SimulationConfig
}

// DiscoverSimulations finds all simulations in the project's cmd directory
func DiscoverSimulations() ([]SimulationInfo, error) {
	rootDir, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	return DiscoverSimulationsIn(filepath.Join(rootDir, "cmd"))
}

// DiscoverSimulationsIn walks dir for simulation.yaml files. Files that fail
// to parse are skipped with a warning.
func DiscoverSimulationsIn(dir string) ([]SimulationInfo, error) {
	var simulations []SimulationInfo

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Name() != "simulation.yaml" {
			return nil
		}

		config, err := simulation.LoadSimulationConfig(path)
		if err != nil {
			logger.Warnf("failed to load %s: %v", path, err)
			return nil
		}
		simulations = append(simulations, SimulationInfo{Path: filepath.Dir(path), Config: *config})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan for simulations: %w", err)
	}

	sort.Slice(simulations, func(i, j int) bool { return simulations[i].Config.Name < simulations[j].Config.Name })
	return simulations, nil
}

// FindSimulation returns the discovered simulation with the given name
func FindSimulation(sims []SimulationInfo, name string) (SimulationInfo, bool) {
	want := simulation.NameKey(name)
	for _, s := range sims {
		if simulation.NameKey(s.Config.Name) == want {
			return s, true
		}
	}
	return SimulationInfo{}, false
}

// findProjectRoot finds the project root by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}
