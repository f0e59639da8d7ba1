package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/descent-simulations/pkg/simulation"
)

var params = []simulation.Parameter{
	{Name: "release_altitude", Type: "float", Default: 30000, Min: 1, Max: 50000},
	{Name: "runs", Type: "integer", Default: 100, Min: 1},
	{Name: "method", Type: "string", Default: "rk4", Options: []string{"rk4", "midpoint"}},
	{Name: "max_flight_time", Type: "duration", Default: "12h"},
	{Name: "save_report", Type: "boolean", Default: false},
	{Name: "scenario_file", Type: "string"},
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name  string
		param simulation.Parameter
		value string
		want  interface{}
		err   bool
	}{
		{"float", params[0], "12000.5", 12000.5, false},
		{"float below min", params[0], "0", nil, true},
		{"float above max", params[0], "60000", nil, true},
		{"integer", params[1], "25", 25, false},
		{"integer not a number", params[1], "many", nil, true},
		{"option", params[2], "midpoint", "midpoint", false},
		{"unknown option", params[2], "euler", nil, true},
		{"duration", params[3], "90m", 90 * time.Minute, false},
		{"boolean", params[4], "true", true, false},
		{"unsupported", simulation.Parameter{Type: "complex"}, "1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.value, tt.param)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveParameters(t *testing.T) {
	t.Setenv("DESCENT_RUNS", "12")
	t.Setenv("DESCENT_METHOD", "midpoint")

	got, err := ResolveParameters(params)
	require.NoError(t, err)

	assert.Equal(t, 30000.0, got["release_altitude"], "yaml integer default coerced to float")
	assert.Equal(t, 12, got["runs"])
	assert.Equal(t, "midpoint", got["method"])
	assert.Equal(t, 12*time.Hour, got["max_flight_time"])
	assert.Equal(t, false, got["save_report"])
	assert.NotContains(t, got, "scenario_file")

	t.Setenv("DESCENT_RUNS", "0")
	_, err = ResolveParameters(params)
	assert.ErrorContains(t, err, "at least 1")

	_, err = ResolveParameters([]simulation.Parameter{{Name: "needed", Type: "string", Required: true}})
	assert.ErrorContains(t, err, "required parameter needed")
}

func TestPromptForParametersSkipsPrompts(t *testing.T) {
	t.Setenv("DESCENT_SKIP_PROMPTS", "true")
	t.Setenv("DESCENT_RELEASE_ALTITUDE", "2500")

	got, err := PromptForParameters(params)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, got["release_altitude"])
	assert.Equal(t, 100, got["runs"])
}

func TestOptionalParametersAreLeftOut(t *testing.T) {
	t.Setenv("DESCENT_SKIP_PROMPTS", "true")
	unset := []simulation.Parameter{
		{Name: "release_latitude", Type: "float", Min: -90, Max: 90},
		{Name: "method", Type: "string", Options: []string{"rk4", "midpoint"}},
		{Name: "save_report", Type: "boolean", Default: false},
	}
	assert.True(t, optional(unset[0]))
	assert.False(t, optional(unset[2]))
	assert.False(t, optional(simulation.Parameter{Name: "needed", Type: "float", Required: true}))

	got, err := PromptForParameters(unset)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"save_report": false}, got)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "DESCENT_RELEASE_ALTITUDE", EnvKey("release_altitude"))
}

func TestDiscoverSimulationsIn(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write("reachability/simulation.yaml", "name: Reachability\nparameters: []\n")
	write("descent/simulation.yaml", "name: Descent\nparameters:\n  - name: runs\n    type: integer\n")
	write("broken/simulation.yaml", "name: [unclosed\n")
	write("descent/README.md", "not a simulation")

	sims, err := DiscoverSimulationsIn(dir)
	require.NoError(t, err)
	require.Len(t, sims, 2)
	assert.Equal(t, "Descent", sims[0].Config.Name)
	assert.Equal(t, filepath.Join(dir, "descent"), sims[0].Path)
	assert.Equal(t, "Reachability", sims[1].Config.Name)

	found, ok := FindSimulation(sims, "Reachability")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "reachability"), found.Path)
	_, ok = FindSimulation(sims, " reachability ")
	assert.True(t, ok, "names match like registry lookups")
	_, ok = FindSimulation(sims, "Tornado")
	assert.False(t, ok)
}
