package atmosphere

import (
	"fmt"
	"math"
	"time"

	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/interpolate"
)

// GridSpec is the raw content of a gridded forecast. Field slices are laid out
// row-major as [hour][level][lat][lon]. W, T and HGT are optional and may be
// nil; HGT is geopotential height in metres.
type GridSpec struct {
	CycleTime     time.Time
	ForecastHours []float64
	Levels        []float64 // hPa, strictly decreasing
	Latitudes     []float64
	Longitudes    []float64

	U   []float64
	V   []float64
	W   []float64
	T   []float64
	HGT []float64
}

// Grid is an immutable atmospheric dataset on pressure levels. It is shared
// by reference between runs and needs no locking.
type Grid struct {
	cycle  time.Time
	hours  *interpolate.Axis
	levels *interpolate.Axis
	lats   *interpolate.Axis
	lons   *interpolate.Axis

	nh, nl, nlat, nlon int

	u, v, w, temp []float64
	// geometric altitude of every node, nil when the ISA level altitude applies
	alt []float64

	levelAlt []float64
	levelLnP []float64

	spec     GridSpec
	coverage Coverage
}

// NewGrid validates spec and builds a grid from it. The spec's slices are
// copied.
func NewGrid(spec GridSpec) (*Grid, error) {
	g := &Grid{cycle: spec.CycleTime.UTC()}

	var err error
	if len(spec.ForecastHours) == 1 {
		// an analysis valid at one instant
		g.hours, err = interpolate.NewPoint(spec.ForecastHours[0])
	} else {
		g.hours, err = interpolate.NewAxis(spec.ForecastHours)
	}
	if err != nil {
		return nil, fmt.Errorf("forecast hours: %w", err)
	}
	if len(spec.ForecastHours) > 1 && spec.ForecastHours[1] < spec.ForecastHours[0] {
		return nil, fmt.Errorf("forecast hours must be ascending")
	}
	if g.levels, err = interpolate.NewAxis(spec.Levels); err != nil {
		return nil, fmt.Errorf("pressure levels: %w", err)
	}
	if spec.Levels[1] > spec.Levels[0] {
		return nil, fmt.Errorf("pressure levels must be ordered from the surface upwards (decreasing hPa)")
	}
	if spec.Levels[len(spec.Levels)-1] <= 0 {
		return nil, fmt.Errorf("pressure levels must be positive")
	}
	if g.lats, err = interpolate.NewAxis(spec.Latitudes); err != nil {
		return nil, fmt.Errorf("latitudes: %w", err)
	}
	if g.lats.Min() < -90 || g.lats.Max() > 90 {
		return nil, fmt.Errorf("latitudes must lie within [-90, 90]")
	}

	lons, err := unwrapLongitudes(spec.Longitudes)
	if err != nil {
		return nil, err
	}
	if g.lons, err = interpolate.NewAxis(lons); err != nil {
		return nil, fmt.Errorf("longitudes: %w", err)
	}
	if err := g.lons.Periodic(360); err != nil {
		return nil, fmt.Errorf("longitudes: %w", err)
	}

	g.nh, g.nl, g.nlat, g.nlon = g.hours.Len(), g.levels.Len(), g.lats.Len(), g.lons.Len()
	size := g.nh * g.nl * g.nlat * g.nlon

	if g.u, err = field("U", spec.U, size, true); err != nil {
		return nil, err
	}
	if g.v, err = field("V", spec.V, size, true); err != nil {
		return nil, err
	}
	if g.w, err = field("W", spec.W, size, false); err != nil {
		return nil, err
	}
	if g.temp, err = field("T", spec.T, size, false); err != nil {
		return nil, err
	}
	for i, t := range g.temp {
		if t <= 0 {
			return nil, fmt.Errorf("field T: non-positive temperature %g at index %d", t, i)
		}
	}
	hgt, err := field("HGT", spec.HGT, size, false)
	if err != nil {
		return nil, err
	}

	g.levelAlt = make([]float64, g.nl)
	g.levelLnP = make([]float64, g.nl)
	for l, hPa := range spec.Levels {
		g.levelAlt[l] = PressureAltitude(hPa)
		g.levelLnP[l] = math.Log(hPa * 100)
	}

	if hgt != nil {
		g.alt = make([]float64, size)
		for i, h := range hgt {
			g.alt[i] = GeopotentialToGeometric(h)
		}
		if err := g.checkColumns(); err != nil {
			return nil, err
		}
	}

	g.spec = GridSpec{
		CycleTime:     g.cycle,
		ForecastHours: g.hours.Nodes(),
		Levels:        g.levels.Nodes(),
		Latitudes:     g.lats.Nodes(),
		Longitudes:    lons,
		U:             g.u,
		V:             g.v,
		W:             g.w,
		T:             g.temp,
		HGT:           hgt,
	}
	g.coverage = g.buildCoverage()
	return g, nil
}

// unwrapLongitudes normalises the first longitude into [0, 360) and keeps the
// remaining ones contiguous with it, so a regional grid across the prime
// meridian stays ascending (350, 355, 360, 365 ...).
func unwrapLongitudes(lons []float64) ([]float64, error) {
	if len(lons) < 2 {
		return nil, fmt.Errorf("longitudes: need at least 2 nodes")
	}
	out := make([]float64, len(lons))
	out[0] = geo.NormalizeLongitude(lons[0])
	for i := 1; i < len(lons); i++ {
		d := lons[i] - lons[i-1]
		if d <= 0 {
			return nil, fmt.Errorf("longitudes must be strictly ascending (node %d = %g follows %g)", i, lons[i], lons[i-1])
		}
		out[i] = out[i-1] + d
	}
	return out, nil
}

func field(name string, values []float64, size int, required bool) ([]float64, error) {
	if values == nil {
		if required {
			return nil, fmt.Errorf("field %s is required", name)
		}
		return nil, nil
	}
	if len(values) != size {
		return nil, fmt.Errorf("field %s has %d values, want %d", name, len(values), size)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("field %s: non-finite value at index %d", name, i)
		}
	}
	return append([]float64(nil), values...), nil
}

// checkColumns verifies geopotential heights rise with level in every column
func (g *Grid) checkColumns() error {
	for h := 0; h < g.nh; h++ {
		for j := 0; j < g.nlat; j++ {
			for k := 0; k < g.nlon; k++ {
				for l := 1; l < g.nl; l++ {
					if g.alt[g.index(h, l, j, k)] <= g.alt[g.index(h, l-1, j, k)] {
						return fmt.Errorf("field HGT: heights do not increase with level at hour %d, lat %d, lon %d", h, j, k)
					}
				}
			}
		}
	}
	return nil
}

func (g *Grid) buildCoverage() Coverage {
	c := Coverage{
		Start:        g.validTime(g.hours.Node(0)),
		End:          g.validTime(g.hours.Node(g.nh - 1)),
		MinLatitude:  g.lats.Min(),
		MaxLatitude:  g.lats.Max(),
		MinLongitude: g.lons.Min(),
		MaxLongitude: g.lons.Max(),
		GlobalLon:    g.lons.Wraps(),
		MaxAltitude:  g.levelAlt[g.nl-1],
	}
	if c.GlobalLon {
		c.MinLongitude, c.MaxLongitude = 0, 360
	}
	if g.alt != nil {
		top := math.Inf(1)
		for h := 0; h < g.nh; h++ {
			for j := 0; j < g.nlat; j++ {
				for k := 0; k < g.nlon; k++ {
					top = math.Min(top, g.alt[g.index(h, g.nl-1, j, k)])
				}
			}
		}
		c.MaxAltitude = top
	}
	return c
}

func (g *Grid) validTime(hour float64) time.Time {
	return g.cycle.Add(time.Duration(hour * float64(time.Hour)))
}

func (g *Grid) index(h, l, j, k int) int {
	return ((h*g.nl+l)*g.nlat+j)*g.nlon + k
}

// CycleTime returns the forecast cycle the grid was issued at
func (g *Grid) CycleTime() time.Time { return g.cycle }

// Coverage returns the grid's envelope
func (g *Grid) Coverage() Coverage { return g.coverage }

// Shape returns the number of hours, levels, latitudes and longitudes
func (g *Grid) Shape() (hours, levels, lats, lons int) {
	return g.nh, g.nl, g.nlat, g.nlon
}

// HasTemperature reports whether the grid carries a temperature field
func (g *Grid) HasTemperature() bool { return g.temp != nil }

// HasHeights reports whether level altitudes come from geopotential heights
func (g *Grid) HasHeights() bool { return g.alt != nil }

// Spec returns the grid content. Longitudes are in the grid's contiguous
// [0, 360)-based form. The returned slices must not be modified.
func (g *Grid) Spec() GridSpec { return g.spec }

// Node returns the stored values at a grid node
func (g *Grid) Node(h, l, j, k int) (u, v float64) {
	i := g.index(h, l, j, k)
	return g.u[i], g.v[i]
}
