package descent

import (
	"context"
	"fmt"
	"sync"

	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/report"
	"github.com/picogrid/descent-simulations/pkg/scenario"
	"github.com/picogrid/descent-simulations/pkg/simulation"
)

// Name is the registry name of the single-run prediction
const Name = "Descent Prediction"

// DescentSimulation predicts the landing point of one descent
type DescentSimulation struct {
	config *Config

	mu     sync.Mutex
	cancel context.CancelFunc

	// result of the last Run
	scenario *scenario.Config
	result   *integrator.Result
}

// NewDescentSimulation creates a new instance of the descent simulation
func NewDescentSimulation() simulation.Simulation {
	return &DescentSimulation{}
}

// Name returns the simulation name
func (s *DescentSimulation) Name() string {
	return Name
}

// Description returns the simulation description
func (s *DescentSimulation) Description() string {
	return "Integrates one descent from the release point to the ground"
}

// Configure sets up the simulation with provided parameters
func (s *DescentSimulation) Configure(params map[string]interface{}) error {
	config, err := ValidateAndParse(params)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	s.config = config
	return nil
}

// Run executes the simulation
func (s *DescentSimulation) Run(ctx context.Context, env *simulation.Environment) error {
	if s.config == nil {
		return fmt.Errorf("simulation is not configured")
	}
	if env == nil {
		env = &simulation.Environment{}
	}
	log := env.Log().WithPrefix("descent")

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

	log.Infof("Predicting descent of %s from %.0f m using %s", cfg.Profile.Name, cfg.Release.Altitude, source)
	res, err := runner.Single(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.scenario, s.result = cfg, res
	s.mu.Unlock()

	report.NewPrinter(env.Writer()).Single(*cfg, res)

	if s.config.SaveReport && env.ReportDir != "" {
		paths, err := report.Save(report.Config{OutputDir: env.ReportDir, Format: env.ReportFormat}, report.ForSingle(*cfg, res, s.config.TrajectoryEvery))
		if err != nil {
			return err
		}
		for _, p := range paths {
			log.Infof("Report saved to %s", p)
		}
	}
	return nil
}

// Result returns the scenario and result of the last run
func (s *DescentSimulation) Result() (*scenario.Config, *integrator.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenario, s.result
}

// Stop gracefully shuts down the simulation
func (s *DescentSimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register(Name, NewDescentSimulation)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
		return
	}
}
