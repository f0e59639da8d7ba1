package scenario

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/dynamics"
	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/metrics"
	"github.com/picogrid/descent-simulations/pkg/simerr"
	"github.com/picogrid/descent-simulations/pkg/tracing"
)

// Runner owns one validated scenario and the atmosphere it flies through.
// The provider is shared read-only by every run.
type Runner struct {
	cfg      Config
	provider atmosphere.Provider
	model    *dynamics.Model
	opts     integrator.Options
	integ    *integrator.Integrator

	log      logger.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
	terrain  integrator.Terrain
	progress func(done, total int)
}

// Option customises a Runner
type Option func(*Runner)

// WithLogger sets the logger used for run outcomes
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithMetrics records every run in c
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithTracer wraps runs and ensembles in spans from t
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithTerrain replaces the flat ground from the configuration
func WithTerrain(t integrator.Terrain) Option {
	return func(r *Runner) { r.terrain = t }
}

// WithProgress is called after every finished run of an ensemble or sweep.
// It may be called from several goroutines at once.
func WithProgress(fn func(done, total int)) Option {
	return func(r *Runner) { r.progress = fn }
}

// NewRunner validates cfg against the provider. Only session setup errors
// are returned here; failures of individual runs are reported in results.
func NewRunner(cfg Config, provider atmosphere.Provider, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, simerr.Invalid("provider", nil, "no atmospheric data loaded")
	}

	r := &Runner{
		cfg:      cfg,
		provider: provider,
		log:      logger.WithPrefix("scenario"),
		tracer:   tracing.Tracer(),
	}
	for _, opt := range opts {
		opt(r)
	}

	cov := provider.Coverage()
	release := cfg.Release.State()
	if !cov.ContainsTime(release.Time) {
		return nil, simerr.Invalid("release.time", release.Time.Format(time.RFC3339),
			"outside the atmospheric data window %s to %s", cov.Start.Format(time.RFC3339), cov.End.Format(time.RFC3339))
	}
	if cov.MaxAltitude > 0 && release.Alt > cov.MaxAltitude {
		return nil, simerr.Invalid("release.altitude", release.Alt, "above the atmospheric data ceiling %.0f m", cov.MaxAltitude)
	}

	if r.terrain == nil {
		r.terrain = integrator.FlatTerrain{Height: cfg.Integration.GroundElevation}
	}
	if ground := r.terrain.Elevation(release.Lat, release.Lon); release.Alt <= ground {
		return nil, simerr.Invalid("release.altitude", release.Alt, "must be above the terrain elevation %g m", ground)
	}

	model, err := dynamics.NewModel(cfg.Profile)
	if err != nil {
		return nil, err
	}
	r.model = model

	r.opts = cfg.Integration.Options.WithDefaults()
	r.opts.Ground = r.terrain
	integ, err := integrator.New(r.opts)
	if err != nil {
		return nil, err
	}
	r.integ = integ
	return r, nil
}

// Config returns the scenario the runner was built with
func (r *Runner) Config() Config {
	return r.cfg
}

// Release returns the unperturbed release state
func (r *Runner) Release() dynamics.State {
	return r.cfg.Release.State()
}

// Single runs the unperturbed scenario once. The error is non-nil only when
// ctx is already done; a failed descent is an Aborted result.
func (r *Runner) Single(ctx context.Context) (*integrator.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.run(ctx, "descent.single", r.integ, r.model, r.Release()), nil
}

// run integrates one descent with tracing, metrics and logging around it
func (r *Runner) run(ctx context.Context, name string, integ *integrator.Integrator, model *dynamics.Model, release dynamics.State) *integrator.Result {
	_, span := r.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Float64("release.lat", release.Lat),
		attribute.Float64("release.lon", release.Lon),
		attribute.Float64("release.alt", release.Alt),
	))
	defer span.End()

	start := time.Now()
	res := integ.Integrate(model, r.provider, release)
	wall := time.Since(start)
	r.metrics.ObserveRun(res, wall)

	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Int("steps", res.Steps),
	)
	log := r.log.WithFields(map[string]interface{}{"status": res.Status, "steps": res.Steps})
	switch res.Status {
	case integrator.Landed:
		l := res.Landing
		span.SetAttributes(attribute.Float64("landing.distance", l.Distance))
		log.Debugf("landed at %.4f, %.4f after %s (%.1f km, bearing %.0f)",
			l.Lat, geo.SignedLongitude(l.Lon), l.FlightDuration.Round(time.Second), l.Distance/1000, l.Bearing)
	default:
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, string(res.Reason))
		log.WithField("reason", res.Reason).Debugf("aborted: %v", res.Err)
	}
	return res
}
