package ensemble

import (
	"context"
	"fmt"
	"sync"

	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/report"
	"github.com/picogrid/descent-simulations/pkg/scenario"
	"github.com/picogrid/descent-simulations/pkg/simulation"
)

// Name is the registry name of the Monte Carlo ensemble
const Name = "Descent Ensemble"

// EnsembleSimulation runs a scenario many times under perturbed release
// conditions and reports the landing spread
type EnsembleSimulation struct {
	config *Config

	mu     sync.Mutex
	cancel context.CancelFunc
	result *scenario.EnsembleResult
}

// NewEnsembleSimulation creates a new instance of the ensemble simulation
func NewEnsembleSimulation() simulation.Simulation {
	return &EnsembleSimulation{}
}

// Name returns the simulation name
func (s *EnsembleSimulation) Name() string {
	return Name
}

// Description returns the simulation description
func (s *EnsembleSimulation) Description() string {
	return "Monte Carlo ensemble of perturbed descents with landing statistics"
}

// Configure sets up the simulation with provided parameters
func (s *EnsembleSimulation) Configure(params map[string]interface{}) error {
	config, err := ValidateAndParse(params)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	s.config = config
	return nil
}

// Run executes the ensemble. A degraded ensemble is still reported; only
// setup failures are returned as errors.
func (s *EnsembleSimulation) Run(ctx context.Context, env *simulation.Environment) error {
	if s.config == nil {
		return fmt.Errorf("simulation is not configured")
	}
	if env == nil {
		env = &simulation.Environment{}
	}
	log := env.Log().WithPrefix("ensemble")

	cfg, err := scenario.LoadConfigWithOverrides(s.config.ScenarioFile, s.config.Overrides)
	if err != nil {
		return err
	}
	provider, source, err := env.Atmosphere(cfg)
	if err != nil {
		return err
	}

	opts := []scenario.Option{
		scenario.WithLogger(log),
		scenario.WithMetrics(env.Metrics),
	}
	var bar *logger.ProgressBar
	if s.config.Progress {
		bar = logger.NewProgressBarTo(env.Writer(), cfg.Ensemble.Runs, "Runs")
		opts = append(opts, scenario.WithProgress(func(done, _ int) { bar.Update(done) }))
	}
	runner, err := scenario.NewRunner(*cfg, provider, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	log.Infof("Running %d perturbed descents using %s", cfg.Ensemble.Runs, source)
	res, err := runner.Ensemble(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.result = res
	s.mu.Unlock()

	report.NewPrinter(env.Writer()).Ensemble(*cfg, res)
	if res.Degraded {
		log.Warnf("Ensemble degraded: %.1f%% of runs failed", res.FailureRate*100)
	}

	if s.config.SaveReport && env.ReportDir != "" {
		paths, err := report.Save(report.Config{OutputDir: env.ReportDir, Format: env.ReportFormat}, report.ForEnsemble(*cfg, res))
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
func (s *EnsembleSimulation) Result() *scenario.EnsembleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Stop cancels the runs that have not started yet
func (s *EnsembleSimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// init registers the simulation
func init() {
	err := simulation.DefaultRegistry.Register(Name, NewEnsembleSimulation)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
		return
	}
}
