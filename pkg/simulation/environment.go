package simulation

import (
	"fmt"
	"io"
	"os"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/scenario"
)

// Atmosphere picks the provider for cfg: the loaded dataset first, then the
// dataset named by the scenario, then the scenario's wind layers. The
// returned name describes the source for reports.
func (e *Environment) Atmosphere(cfg *scenario.Config) (atmosphere.Provider, string, error) {
	if e != nil && e.Provider != nil {
		return e.Provider, e.Dataset, nil
	}
	if cfg.Dataset != "" {
		if e == nil || e.LoadDataset == nil {
			return nil, "", fmt.Errorf("scenario names dataset %q but no dataset registry is available", cfg.Dataset)
		}
		p, err := e.LoadDataset(cfg.Dataset)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load dataset %s: %w", cfg.Dataset, err)
		}
		return p, cfg.Dataset, nil
	}
	p, err := cfg.WindProvider()
	if err != nil {
		return nil, "", err
	}
	return p, "wind layers", nil
}

// Log returns the environment logger or the package default
func (e *Environment) Log() logger.Logger {
	if e == nil || e.Logger == nil {
		return logger.Default()
	}
	return e.Logger
}

// Writer returns the output writer, stdout when unset
func (e *Environment) Writer() io.Writer {
	if e == nil || e.Output == nil {
		return os.Stdout
	}
	return e.Output
}
