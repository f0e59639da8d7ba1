package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/descent-simulations/pkg/simulation"
)

func TestAxis(t *testing.T) {
	got, err := axis(0, 24, 6)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 6, 12, 18, 24}, got)

	got, err = axis(-10, 10, 7)
	require.NoError(t, err)
	assert.Equal(t, []float64{-10, -3, 4, 10}, got)

	_, err = axis(0, 10, 0)
	assert.Error(t, err)
	_, err = axis(5, 5, 1)
	assert.Error(t, err)
}

func TestCollectParametersFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runs: 25\nposition_sigma: 200\ntime_jitter: 5m\ndistribution: uniform\n"), 0644))

	params := []simulation.Parameter{
		{Name: "runs", Type: "integer", Min: 1},
		{Name: "position_sigma", Type: "float"},
		{Name: "time_jitter", Type: "duration"},
		{Name: "distribution", Type: "string", Options: []string{"normal", "uniform"}},
	}
	got, err := collectParameters(params, path)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"runs":           25,
		"position_sigma": 200.0,
		"time_jitter":    5 * time.Minute,
		"distribution":   "uniform",
	}, got)

	require.NoError(t, os.WriteFile(path, []byte("runs: 0\nposition_sigma: 1\ntime_jitter: 1m\ndistribution: normal\n"), 0644))
	_, err = collectParameters(params, path)
	assert.ErrorContains(t, err, "runs")

	_, err = collectParameters(params, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read parameters file")
}

func TestBuiltInSimulationsAreRegistered(t *testing.T) {
	names := simulation.DefaultRegistry.List()
	assert.Contains(t, names, "Descent Prediction")
	assert.Contains(t, names, "Descent Ensemble")
	assert.Contains(t, names, "Glide Reachability")
}
