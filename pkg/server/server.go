// Package server exposes descent predictions over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/metrics"
	"github.com/picogrid/descent-simulations/pkg/report"
	"github.com/picogrid/descent-simulations/pkg/scenario"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// Config controls the HTTP surface
type Config struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxRuns        int // largest ensemble or sweep a request may ask for
}

// DefaultConfig listens on :8080 and accepts any origin
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		AllowedOrigins: []string{"*"},
		RequestTimeout: 2 * time.Minute,
		MaxRuns:        1000,
	}
}

// Server answers prediction requests against one loaded atmosphere. Requests
// that carry their own wind layers fly through those instead.
type Server struct {
	cfg      Config
	provider atmosphere.Provider
	dataset  string
	metrics  *metrics.Collector
	log      logger.Logger
}

// New builds a server. provider may be nil, in which case only requests
// with wind layers can be answered.
func New(cfg Config, provider atmosphere.Provider, dataset string, collector *metrics.Collector, log logger.Logger) *Server {
	if log == nil {
		log = logger.WithPrefix("server")
	}
	def := DefaultConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = def.MaxRuns
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = def.AllowedOrigins
	}
	return &Server{cfg: cfg, provider: provider, dataset: dataset, metrics: collector, log: log}
}

// Routes wires middlewares and endpoints
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/coverage", s.handleCoverage)
		api.Post("/predictions", s.handlePrediction)
		api.Post("/ensembles", s.handleEnsemble)
		api.Post("/reachability", s.handleReachability)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(map[string]interface{}{
			"status":     ww.Status(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debugf("%s %s in %s", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"dataset": s.dataset,
		"loaded":  s.provider != nil,
	})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no atmospheric data loaded"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset":  s.dataset,
		"coverage": s.provider.Coverage(),
	})
}

type predictionResponse struct {
	ID     uuid.UUID         `json:"id"`
	Result report.RunSummary `json:"result"`
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	decimate := 1
	if raw := r.URL.Query().Get("decimate"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decimate must be an integer"))
			return
		}
		decimate = n
	}

	runner, ctx, cancel, ok := s.prepare(w, r)
	if !ok {
		return
	}
	defer cancel()

	res, err := runner.Single(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{ID: uuid.New(), Result: report.Summarize(res, decimate)})
}

func (s *Server) handleEnsemble(w http.ResponseWriter, r *http.Request) {
	runner, ctx, cancel, ok := s.prepare(w, r)
	if !ok {
		return
	}
	defer cancel()

	if n := runner.Config().Ensemble.Runs; n > s.cfg.MaxRuns {
		writeError(w, http.StatusBadRequest, simerr.Invalid("ensemble.runs", n, "at most %d runs per request", s.cfg.MaxRuns))
		return
	}
	res, err := runner.Ensemble(ctx)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReachability(w http.ResponseWriter, r *http.Request) {
	runner, ctx, cancel, ok := s.prepare(w, r)
	if !ok {
		return
	}
	defer cancel()

	if n := runner.Config().Reachability.Headings; n > s.cfg.MaxRuns {
		writeError(w, http.StatusBadRequest, simerr.Invalid("reachability.headings", n, "at most %d headings per request", s.cfg.MaxRuns))
		return
	}
	res, err := runner.Reachability(ctx)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// prepare decodes the scenario in the request body over the defaults and
// builds a runner for it. On failure the response is already written.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (*scenario.Runner, context.Context, context.CancelFunc, bool) {
	cfg := scenario.Template()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad json: %w", err))
		return nil, nil, nil, false
	}
	cfg.FillProfileDefaults()

	provider := s.provider
	if len(cfg.Wind) > 0 {
		layered, err := cfg.WindProvider()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return nil, nil, nil, false
		}
		provider = layered
	}

	runner, err := scenario.NewRunner(*cfg, provider,
		scenario.WithMetrics(s.metrics),
		scenario.WithLogger(s.log.WithField("request_id", middleware.GetReqID(r.Context()))),
	)
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, nil, nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	return runner, ctx, cancel, true
}

type errorResponse struct {
	Error  string        `json:"error"`
	Field  string        `json:"field,omitempty"`
	Reason simerr.Reason `json:"reason,omitempty"`
}

func statusFor(err error) int {
	var verr *simerr.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var verr *simerr.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
		resp.Reason = simerr.ReasonValidation
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
