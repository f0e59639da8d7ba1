package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamReaders(t *testing.T) {
	params := map[string]interface{}{
		"alt":     3000,
		"lat":     51.5,
		"runs":    float64(20),
		"half":    2.5,
		"name":    "storm",
		"empty":   "",
		"save":    "yes",
		"jitter":  "90s",
		"seconds": 30,
		"bad":     []int{1},
	}

	v, ok, err := Float(params, "alt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3000.0, v)

	_, ok, err = Float(params, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = Float(params, "bad")
	assert.ErrorContains(t, err, "bad must be a number")

	n, ok, err := Int(params, "runs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	_, _, err = Int(params, "half")
	assert.ErrorContains(t, err, "integer")

	s, ok := String(params, "name")
	assert.True(t, ok)
	assert.Equal(t, "storm", s)
	_, ok = String(params, "empty")
	assert.False(t, ok)

	b, ok, err := Bool(params, "save")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b)
	_, _, err = Bool(params, "name")
	assert.Error(t, err)

	d, ok, err := Duration(params, "jitter")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, d)

	d, _, err = Duration(params, "seconds")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestRangeReaders(t *testing.T) {
	params := map[string]interface{}{"lat": 95.0, "runs": 0}

	_, _, err := FloatIn(params, "lat", -90, 90)
	assert.ErrorContains(t, err, "lat must be between -90 and 90")

	_, _, err = IntIn(params, "runs", 1, 10000)
	assert.ErrorContains(t, err, "runs must be between 1 and 10000")

	_, ok, err := FloatIn(params, "lon", -180, 360)
	require.NoError(t, err)
	assert.False(t, ok)
}
