package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/descent-simulations/pkg/atmosphere"
	"github.com/picogrid/descent-simulations/pkg/integrator"
	"github.com/picogrid/descent-simulations/pkg/logger"
	"github.com/picogrid/descent-simulations/pkg/metrics"
)

const windyRelease = `{
	"name": "http",
	"wind": [{"top": 20000, "speed": 10, "direction": 90}],
	"release": {"latitude": 50, "longitude": -2, "altitude": 1000, "time": "2026-03-01T06:00:00Z"},
	"profile": {"terminal_velocity": 5}%s
}`

func body(extra string) io.Reader {
	return strings.NewReader(strings.Replace(windyRelease, "%s", extra, 1))
}

func newTestServer(t *testing.T, provider atmosphere.Provider) (*httptest.Server, *metrics.Collector) {
	t.Helper()
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	s := New(Config{MaxRuns: 50}, provider, "test-grid", collector, logger.Discard())
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts, collector
}

func post(t *testing.T, url string, r io.Reader) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", r)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealthAndCoverage(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["loaded"])

	resp, err = http.Get(ts.URL + "/api/v1/coverage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	g, err := atmosphere.CalmGrid(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 12, 40, 60, 350, 370)
	require.NoError(t, err)
	loaded, _ := newTestServer(t, atmosphere.NewGridProvider(g))
	resp, err = http.Get(loaded.URL + "/api/v1/coverage")
	require.NoError(t, err)
	defer resp.Body.Close()
	var cov struct {
		Dataset  string              `json:"dataset"`
		Coverage atmosphere.Coverage `json:"coverage"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cov))
	assert.Equal(t, "test-grid", cov.Dataset)
	assert.Equal(t, 40.0, cov.Coverage.MinLatitude)
	assert.Equal(t, 60.0, cov.Coverage.MaxLatitude)
}

func TestPrediction(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/api/v1/predictions?decimate=10", "application/json", body(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		ID     string `json:"id"`
		Result struct {
			Status     integrator.Status   `json:"status"`
			Landing    *integrator.Landing `json:"landing"`
			Trajectory []json.RawMessage   `json:"trajectory"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, integrator.Landed, out.Result.Status)
	require.NotNil(t, out.Result.Landing)
	assert.InDelta(t, 90, out.Result.Landing.Bearing, 1)
	assert.NotEmpty(t, out.Result.Trajectory)

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	text, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), `descent_runs_total{reason="none",status="landed"} 1`)
}

func TestPredictionUsesProfileDrag(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req := strings.Replace(windyRelease, `"profile": {"terminal_velocity": 5}%s`,
		`"profile": {"mass": 2, "reference_area": 0.5, "drag_coefficient": 1.2}`, 1)
	resp, err := http.Post(ts.URL+"/api/v1/predictions", "application/json", strings.NewReader(req))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Result struct {
			Landing *integrator.Landing `json:"landing"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Result.Landing)
	// sqrt(2 m g / (rho0 Cd A)) at sea level
	assert.InDelta(t, -7.3, out.Result.Landing.VerticalSpeed, 0.1)
}

func TestPredictionErrors(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, out := post(t, ts.URL+"/api/v1/predictions", strings.NewReader(`{"release": {"latitude": 95}}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "release.latitude", out["field"])
	assert.Equal(t, "validation", out["reason"])

	resp, out = post(t, ts.URL+"/api/v1/predictions", strings.NewReader(`{"release": {"time": "2026-03-01T06:00:00Z"}}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "provider", out["field"], "no grid and no wind layers")

	resp, _ = post(t, ts.URL+"/api/v1/predictions", strings.NewReader(`{"unknown": 1}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/api/v1/predictions?decimate=x", body(""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEnsemble(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, out := post(t, ts.URL+"/api/v1/ensembles", body(`, "ensemble": {"runs": 12, "seed": 3, "failure_threshold": 0.1, "perturbation": {"position_sigma": 100}}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", out)
	assert.Equal(t, 12.0, out["landed"])
	assert.Equal(t, false, out["degraded"])
	assert.NotNil(t, out["stats"])

	resp, out = post(t, ts.URL+"/api/v1/ensembles", body(`, "ensemble": {"runs": 500}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ensemble.runs", out["field"])
}

func TestReachability(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req := strings.Replace(windyRelease, `"profile": {"terminal_velocity": 5}%s`,
		`"profile": {"terminal_velocity": 5, "glide_ratio": 2}, "reachability": {"headings": 4}`, 1)
	resp, out := post(t, ts.URL+"/api/v1/reachability", strings.NewReader(req))
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", out)
	assert.Equal(t, 4.0, out["landed"])
	assert.Len(t, out["runs"], 4)

	resp, out = post(t, ts.URL+"/api/v1/reachability", body(""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "profile.glide_ratio", out["field"])
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/predictions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
