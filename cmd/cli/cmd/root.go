package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/descent-simulations/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
	noColor  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "descent-sim",
	Short: "Descent prediction CLI",
	Long: `Descent Simulation CLI predicts where an unpowered payload lands
after release from altitude: single trajectories, Monte Carlo ensembles
and glide reachability sweeps through gridded or layered winds.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.descent-sim/config.yaml)")
	rootCmd.PersistentFlags().String("dataset", "", "registered atmospheric dataset to use")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	_ = viper.BindPFlag("dataset", rootCmd.PersistentFlags().Lookup("dataset"))

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	// Configure logger based on flags
	logger.SetLevel(logger.ParseLevel(logLevel))
	logger.SetNoColor(noColor)

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in home directory
		viper.AddConfigPath("$HOME/.descent-sim")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// DESCENT_DATASET, DESCENT_REPORT_DIR, DESCENT_SERVE_ADDR, ...
	viper.SetEnvPrefix("DESCENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		logger.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}
