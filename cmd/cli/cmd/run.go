package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/config"
	"github.com/picogrid/descent-simulations/pkg/gridfile"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/simulation"
	"github.com/picogrid/descent-simulations/pkg/tracing"
	"github.com/picogrid/descent-simulations/pkg/utils"

	// Import simulations to register them
	_ "github.com/picogrid/descent-simulations/cmd/descent"
	_ "github.com/picogrid/descent-simulations/cmd/ensemble"
	_ "github.com/picogrid/descent-simulations/cmd/reachability"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long:  `Run a simulation interactively or with specified parameters`,
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringP("simulation", "s", "", "simulation to run (e.g. \"Descent Ensemble\" or descent-ensemble)")
	runCmd.Flags().StringP("params", "p", "", "parameters file (YAML)")
	runCmd.Flags().String("report-dir", "", "directory for saved reports")
	runCmd.Flags().String("report-format", "json", "report format (json, markdown, both)")
	_ = viper.BindPFlag("report.dir", runCmd.Flags().Lookup("report-dir"))
	_ = viper.BindPFlag("report.format", runCmd.Flags().Lookup("report-format"))
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	simName, err := selectSimulation(cmd)
	if err != nil {
		return fmt.Errorf("failed to select simulation: %w", err)
	}

	sim, err := simulation.DefaultRegistry.Get(simName)
	if err != nil {
		return fmt.Errorf("failed to get simulation: %w", err)
	}

	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return fmt.Errorf("failed to discover simulations: %w", err)
	}
	info, ok := utils.FindSimulation(simInfos, simName)
	if !ok {
		return fmt.Errorf("simulation configuration not found for %s", simName)
	}

	paramsFile, _ := cmd.Flags().GetString("params")
	params, err := collectParameters(info.Config.Parameters, paramsFile)
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}

	logger.LogSubSection("Parameters")
	logger.LogKeyValues(params)

	if err := sim.Configure(params); err != nil {
		return fmt.Errorf("failed to configure simulation: %w", err)
	}

	dataset, err := selectDataset()
	if err != nil {
		return fmt.Errorf("failed to select dataset: %w", err)
	}
	env := &simulation.Environment{
		Dataset:      dataset,
		LoadDataset:  openDataset,
		Logger:       logger.Default(),
		Output:       os.Stdout,
		ReportDir:    viper.GetString("report.dir"),
		ReportFormat: viper.GetString("report.format"),
	}
	if dataset != "" {
		err := logger.WithSpinner(fmt.Sprintf("Loading dataset %s", dataset), func() error {
			var err error
			env.Provider, err = openDataset(dataset)
			return err
		})
		if err != nil {
			return err
		}
		logger.Windf("Winds from dataset %s", dataset)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracing.Init(ctx, tracing.ConfigFromEnv(), logger.Default())
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer tracing.ShutdownWithTimeout(context.Background(), shutdown, logger.Default())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		logger.Warn("\nReceived interrupt signal, stopping simulation...")
		if err := sim.Stop(); err != nil {
			logger.Errorf("Failed to stop simulation: %v", err)
		}
		cancel()
	}()

	logger.LogSection(fmt.Sprintf("Starting %s", sim.Name()))
	if err := sim.Run(ctx, env); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	logger.Success("Simulation completed successfully")
	return nil
}

// collectParameters takes values from the parameters file first and prompts
// for the rest
func collectParameters(params []simulation.Parameter, path string) (map[string]interface{}, error) {
	fromFile := map[string]interface{}{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read parameters file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("failed to parse parameters file: %w", err)
		}
	}

	result := make(map[string]interface{}, len(params))
	var remaining []simulation.Parameter
	for _, p := range params {
		raw, ok := fromFile[p.Name]
		if !ok {
			remaining = append(remaining, p)
			continue
		}
		v, err := utils.Coerce(raw, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		result[p.Name] = v
	}

	prompted, err := utils.PromptForParameters(remaining)
	if err != nil {
		return nil, err
	}
	for k, v := range prompted {
		result[k] = v
	}
	return result, nil
}

// selectDataset returns the dataset from --dataset or DESCENT_DATASET, or
// asks when datasets are registered. An empty name means wind layers.
func selectDataset() (string, error) {
	if name := viper.GetString("dataset"); name != "" {
		return name, nil
	}
	if utils.SkipPrompts() {
		return "", nil
	}

	reg, err := config.LoadDatasets()
	if err != nil {
		return "", err
	}
	if len(reg.Datasets) == 0 {
		return "", nil
	}
	return utils.SelectDataset(reg.Names(), reg.Selected)
}

// openDataset resolves a registered dataset name, or a grid file path, to a
// provider
func openDataset(name string) (atmosphere.Provider, error) {
	path := name
	reg, err := config.LoadDatasets()
	if err != nil {
		return nil, err
	}
	if d, ok := reg.Find(name); ok {
		path = d.Path
	} else if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("dataset %s is not registered", name)
	}

	grid, err := gridfile.Load(path)
	if err != nil {
		return nil, err
	}
	return atmosphere.NewGridProvider(grid), nil
}

func selectSimulation(cmd *cobra.Command) (string, error) {
	// Check if simulation is specified via flag
	simName, _ := cmd.Flags().GetString("simulation")
	if simName != "" {
		return simName, nil
	}

	// Discover available simulations
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return "", err
	}

	if len(simInfos) == 0 {
		return "", fmt.Errorf("no simulations found")
	}

	// Build options for selection
	options := make([]string, len(simInfos))
	descriptions := make(map[string]string)

	for i, info := range simInfos {
		options[i] = info.Config.Name
		descriptions[info.Config.Name] = info.Config.Description
	}

	// Interactive selection
	var selected string
	prompt := &survey.Select{
		Message: "Select simulation:",
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	return selected, nil
}
