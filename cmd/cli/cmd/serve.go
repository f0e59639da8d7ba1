package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/metrics"
	"github.com/picogrid/descent-simulations/pkg/server"
	"github.com/picogrid/descent-simulations/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	Long: `Serve single predictions, ensembles and reachability sweeps as a JSON
API. Requests fly through the selected dataset unless they carry their own
wind layers.`,
	RunE: serve,
}

func init() {
	def := server.DefaultConfig()
	serveCmd.Flags().String("addr", def.Addr, "listen address")
	serveCmd.Flags().Int("max-runs", def.MaxRuns, "largest ensemble or sweep a request may ask for")
	serveCmd.Flags().Duration("request-timeout", def.RequestTimeout, "time limit for one request")
	serveCmd.Flags().StringSlice("allowed-origins", def.AllowedOrigins, "CORS allowed origins")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.max_runs", serveCmd.Flags().Lookup("max-runs"))
	_ = viper.BindPFlag("serve.request_timeout", serveCmd.Flags().Lookup("request-timeout"))
	_ = viper.BindPFlag("serve.allowed_origins", serveCmd.Flags().Lookup("allowed-origins"))
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg := server.Config{
		Addr:           viper.GetString("serve.addr"),
		MaxRuns:        viper.GetInt("serve.max_runs"),
		RequestTimeout: viper.GetDuration("serve.request_timeout"),
		AllowedOrigins: viper.GetStringSlice("serve.allowed_origins"),
	}

	var provider atmosphere.Provider
	dataset := viper.GetString("dataset")
	if dataset != "" {
		logger.Progressf("Loading dataset %s", dataset)
		p, err := openDataset(dataset)
		if err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		provider = p
		logger.Windf("Serving winds from dataset %s", dataset)
	} else {
		logger.Warn("No dataset selected; only requests with wind layers can be answered")
	}

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.Init(ctx, tracing.ConfigFromEnv(), logger.Default())
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer tracing.ShutdownWithTimeout(context.Background(), shutdown, logger.Default())

	srv := server.New(cfg, provider, dataset, collector, logger.WithPrefix("server"))
	return srv.ListenAndServe(ctx)
}
