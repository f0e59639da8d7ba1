// Package metrics exposes Prometheus instrumentation for descent runs and
// ensembles.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/picogrid/descent-simulations/pkg/integrator"
)

// Collector bundles the descent metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Runs           *prometheus.CounterVec
	RunDurations   prometheus.Histogram
	FlightDuration prometheus.Histogram
	Steps          prometheus.Histogram

	Ensembles    *prometheus.CounterVec
	FailureRatio prometheus.Gauge
}

// NewCollector registers the descent metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "descent_runs_total",
		Help: "Total number of descent runs, labeled by final status and abort reason.",
	}, []string{"status", "reason"}), "descent_runs_total")
	if err != nil {
		return nil, err
	}

	runDurations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "descent_run_duration_seconds",
		Help:    "Wall-clock time spent integrating one descent.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}), "descent_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	flight, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "descent_flight_duration_seconds",
		Help:    "Simulated flight time from release to landing.",
		Buckets: prometheus.ExponentialBuckets(60, 2, 10),
	}), "descent_flight_duration_seconds")
	if err != nil {
		return nil, err
	}

	steps, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "descent_integration_steps",
		Help:    "Integration steps taken per descent.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	}), "descent_integration_steps")
	if err != nil {
		return nil, err
	}

	ensembles, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "descent_ensembles_total",
		Help: "Total number of completed ensembles, labeled by whether they were degraded.",
	}, []string{"degraded"}), "descent_ensembles_total")
	if err != nil {
		return nil, err
	}

	ratio, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "descent_ensemble_failure_ratio",
		Help: "Fraction of aborted runs in the most recent ensemble.",
	}), "descent_ensemble_failure_ratio")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Runs:           runs,
		RunDurations:   runDurations,
		FlightDuration: flight,
		Steps:          steps,
		Ensembles:      ensembles,
		FailureRatio:   ratio,
	}, nil
}

// ObserveRun records the outcome of one integration
func (c *Collector) ObserveRun(res *integrator.Result, wall time.Duration) {
	if c == nil || res == nil {
		return
	}
	reason := string(res.Reason)
	if reason == "" {
		reason = "none"
	}
	c.Runs.WithLabelValues(string(res.Status), reason).Inc()
	c.RunDurations.Observe(wall.Seconds())
	c.Steps.Observe(float64(res.Steps))
	if res.Landing != nil {
		c.FlightDuration.Observe(res.Landing.FlightDuration.Seconds())
	}
}

// ObserveEnsemble records the summary of a finished ensemble
func (c *Collector) ObserveEnsemble(failureRate float64, degraded bool) {
	if c == nil {
		return
	}
	c.FailureRatio.Set(failureRate)
	c.Ensembles.WithLabelValues(fmt.Sprint(degraded)).Inc()
}

// Handler exposes a ready-to-use /metrics handler
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
