package simulation

import (
	"context"
	"io"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/metrics"
)

// Environment is what the CLI hands to a simulation: the loaded atmosphere
// and the sinks for its output
type Environment struct {
	// Provider is nil when no dataset was selected; simulations then fall
	// back to the wind layers of their scenario
	Provider atmosphere.Provider
	Dataset  string
	// LoadDataset resolves a dataset named by a scenario file when no
	// provider was loaded up front
	LoadDataset func(name string) (atmosphere.Provider, error)

	Metrics *metrics.Collector
	Logger  logger.Logger
	Output  io.Writer

	// ReportDir receives saved reports when non-empty
	ReportDir    string
	ReportFormat string
}

// Simulation defines the interface that all simulations must implement
type Simulation interface {
	// Name returns the name of the simulation
	Name() string

	// Description returns a brief description of what the simulation does
	Description() string

	// Configure sets up the simulation with the provided parameters
	Configure(params map[string]interface{}) error

	// Run executes the simulation against the given environment
	Run(ctx context.Context, env *Environment) error

	// Stop gracefully shuts down the simulation
	Stop() error
}
