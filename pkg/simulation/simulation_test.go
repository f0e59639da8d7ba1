package simulation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSimulation struct{ name string }

func (s *stubSimulation) Name() string                            { return s.name }
func (s *stubSimulation) Description() string                     { return "stub" }
func (s *stubSimulation) Configure(map[string]interface{}) error  { return nil }
func (s *stubSimulation) Run(context.Context, *Environment) error { return nil }
func (s *stubSimulation) Stop() error                             { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ensemble", func() Simulation { return &stubSimulation{name: "ensemble"} }))
	require.NoError(t, r.Register("descent", func() Simulation { return &stubSimulation{name: "descent"} }))

	assert.Error(t, r.Register("descent", func() Simulation { return nil }))
	assert.Equal(t, []string{"descent", "ensemble"}, r.List())

	a, err := r.Get("descent")
	require.NoError(t, err)
	b, err := r.Get("descent")
	require.NoError(t, err)
	assert.Equal(t, "descent", a.Name())
	assert.NotSame(t, a, b, "each Get builds a fresh instance")

	_, err = r.Get("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestRegistryNameFolding(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Glide Reachability", func() Simulation { return &stubSimulation{name: "Glide Reachability"} }))

	for _, name := range []string{"Glide Reachability", "glide-reachability", "GLIDE_REACHABILITY", "  glide   reachability "} {
		assert.True(t, r.Has(name), name)
		sim, err := r.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Glide Reachability", sim.Name())
	}
	assert.False(t, r.Has("glide"))

	err := r.Register("glide_reachability", func() Simulation { return nil })
	assert.ErrorContains(t, err, `already registered as "Glide Reachability"`)
	assert.ErrorContains(t, r.Register("  ", func() Simulation { return nil }), "empty")
	assert.ErrorContains(t, r.Register("descent", nil), "no factory")
	assert.Equal(t, []string{"Glide Reachability"}, r.List())

	assert.Equal(t, "descent-ensemble", NameKey(" Descent Ensemble"))
}

func TestLoadSimulationConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simulation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: "Descent"
description: "single run"
version: "1.0.0"
category: "prediction"
parameters:
  - name: release_altitude
    type: float
    default: 30000
    min: 1
  - name: runs
    type: integer
    default: 100
  - name: scenario_file
    type: string
`), 0644))

	cfg, err := LoadSimulationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Descent", cfg.Name)
	require.Len(t, cfg.Parameters, 3)
	assert.Equal(t, map[string]interface{}{"release_altitude": 30000, "runs": 100}, cfg.Defaults())

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: x\nparameters:\n  - name: p\n    type: complex\n"), 0644))
	_, err = LoadSimulationConfig(bad)
	assert.ErrorContains(t, err, "unsupported type")

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("description: nothing\n"), 0644))
	_, err = LoadSimulationConfig(unnamed)
	assert.ErrorContains(t, err, "has no name")
}
