package reachability

import (
	"context"
	"fmt"
	"sync"

	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/report"
	"github.com/picogrid/descent-simulations/pkg/scenario"
	"github.com/picogrid/descent-simulations/pkg/simulation"
)

// Name is the registry name of the heading sweep
const Name = "Glide Reachability"

// ReachabilitySimulation flies a gliding profile on evenly spaced headings
// and reports where each one lands
type ReachabilitySimulation struct {
	config *Config

	mu     sync.Mutex
	cancel context.CancelFunc
	result *scenario.ReachabilityResult
}

// NewReachabilitySimulation creates a new instance of the reachability sweep
func NewReachabilitySimulation() simulation.Simulation {
	return &ReachabilitySimulation{}
}

// Name returns the simulation name
func (s *ReachabilitySimulation) Name() string {
	return Name
}

// Description returns the simulation description
func (s *ReachabilitySimulation) Description() string {
	return "Landing contour of a gliding descent swept over all headings"
}

// Configure sets up the simulation with provided parameters
func (s *ReachabilitySimulation) Configure(params map[string]interface{}) error {
	config, err := ValidateAndParse(params)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	s.config = config
	return nil
}

// Run executes the sweep
func (s *ReachabilitySimulation) Run(ctx context.Context, env *simulation.Environment) error {
	if s.config == nil {
		return fmt.Errorf("simulation is not configured")
	}
	if env == nil {
		env = &simulation.Environment{}
	}
	log := env.Log().WithPrefix("reachability")

	cfg, err := scenario.LoadConfigWithOverrides(s.config.ScenarioFile, s.config.Overrides)
	if err != nil {
		return err
	}
	provider, source, err := env.Atmosphere(cfg)
	if err != nil {
		return err
	}

	runner, err := scenario.NewRunner(*cfg, provider,
		scenario.WithLogger(log),
		scenario.WithMetrics(env.Metrics),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	log.Infof("Sweeping %d headings at glide ratio %.1f using %s", cfg.Reachability.Headings, cfg.Profile.GlideRatio, source)
	res, err := runner.Reachability(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.result = res
	s.mu.Unlock()

	report.NewPrinter(env.Writer()).Reachability(*cfg, res)

	if s.config.SaveReport && env.ReportDir != "" {
		paths, err := report.Save(report.Config{OutputDir: env.ReportDir, Format: env.ReportFormat}, report.ForReachability(*cfg, res))
		if err != nil {
			return err
		}
		for _, p := range paths {
			log.Infof("Report saved to %s", p)
		}
	}
	return nil
}

// Result returns the result of the last run
func (s *ReachabilitySimulation) Result() *scenario.ReachabilityResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Stop gracefully shuts down the simulation
func (s *ReachabilitySimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register(Name, NewReachabilitySimulation)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
		return
	}
}
