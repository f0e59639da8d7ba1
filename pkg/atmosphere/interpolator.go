package atmosphere

import (
	"math"
	"time"

	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/interpolate"
	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// corner is one of the 8 (hour, lat, lon) nodes surrounding a query, with
// its trilinear weight
type corner struct {
	h, j, k int
	w       float64
}

// GridProvider interpolates a Grid quadrilinearly: trilinear over forecast
// hour, latitude and longitude, then linear in geometric altitude between the
// two pressure levels that bracket the query.
type GridProvider struct {
	grid *Grid
}

var _ Provider = (*GridProvider)(nil)

// NewGridProvider wraps g
func NewGridProvider(g *Grid) *GridProvider {
	return &GridProvider{grid: g}
}

// Grid returns the underlying dataset
func (p *GridProvider) Grid() *Grid { return p.grid }

// Coverage implements Provider
func (p *GridProvider) Coverage() Coverage { return p.grid.coverage }

// Sample implements Provider. Longitudes in any range are accepted and
// normalised to [0, 360) first. Altitudes below the lowest pressure level
// reuse that level's wind and temperature with hydrostatically extrapolated
// pressure; altitudes above the highest level are out of bounds.
func (p *GridProvider) Sample(lat, lon, alt float64, at time.Time) (Sample, error) {
	g := p.grid

	if err := checkFinite("altitude", alt); err != nil {
		return Sample{}, err
	}

	hour := float64(at.Sub(g.cycle)) / float64(time.Hour)
	bh, ok := g.hours.Bracket(hour)
	if !ok {
		return Sample{}, &simerr.OutOfBoundsError{Axis: "forecast hour", Value: hour, Min: g.hours.Min(), Max: g.hours.Max()}
	}

	if err := checkLatitude(lat, g.lats.Min(), g.lats.Max()); err != nil {
		return Sample{}, err
	}
	bj, ok := g.lats.Bracket(lat)
	if !ok {
		return Sample{}, &simerr.OutOfBoundsError{Axis: "latitude", Value: lat, Min: g.lats.Min(), Max: g.lats.Max()}
	}

	normLon := geo.NormalizeLongitude(lon)
	bk, ok := g.lons.Bracket(normLon)
	if !ok {
		return Sample{}, &simerr.OutOfBoundsError{Axis: "longitude", Value: normLon, Min: g.lons.Min(), Max: g.lons.Max()}
	}

	corners := pickCorners(bh, bj, bk)

	top := p.levelAltitude(corners, g.nl-1)
	if alt > top {
		return Sample{}, &simerr.OutOfBoundsError{Axis: "altitude", Value: alt, Min: 0, Max: top}
	}

	bottom := p.levelAltitude(corners, 0)
	if alt <= bottom {
		return p.surfaceSample(corners, alt, bottom), nil
	}

	l := p.searchLevel(corners, alt)
	lower := p.levelAltitude(corners, l)
	upper := p.levelAltitude(corners, l+1)
	w := (alt - lower) / (upper - lower)

	s := Sample{
		WindEast:  p.between(g.u, corners, l, w),
		WindNorth: p.between(g.v, corners, l, w),
	}
	if g.w != nil {
		s.WindUp = p.between(g.w, corners, l, w)
	}
	if g.temp != nil {
		s.Temperature = p.between(g.temp, corners, l, w)
	} else {
		s.Temperature = StandardTemperature(alt)
	}
	s.Pressure = math.Exp(g.levelLnP[l]*(1-w) + g.levelLnP[l+1]*w)
	s.Density = Density(s.Pressure, s.Temperature)
	return s, nil
}

// surfaceSample holds the lowest level's values below it. Pressure follows
// the hypsometric equation down from the level at its temperature.
func (p *GridProvider) surfaceSample(corners [8]corner, alt, bottom float64) Sample {
	g := p.grid
	s := Sample{
		WindEast:  p.blend(g.u, corners, 0),
		WindNorth: p.blend(g.v, corners, 0),
	}
	if g.w != nil {
		s.WindUp = p.blend(g.w, corners, 0)
	}
	if g.temp != nil {
		s.Temperature = p.blend(g.temp, corners, 0)
	} else {
		s.Temperature = StandardTemperature(bottom)
	}
	s.Pressure = math.Exp(g.levelLnP[0] - Gravity*(alt-bottom)/(GasConstant*s.Temperature))
	s.Density = Density(s.Pressure, s.Temperature)
	return s
}

func pickCorners(bh, bj, bk interpolate.Bracket) (corners [8]corner) {
	hs := [2]struct {
		i int
		w float64
	}{{bh.Lo, bh.WLo}, {bh.Hi, bh.WHi}}
	js := [2]struct {
		i int
		w float64
	}{{bj.Lo, bj.WLo}, {bj.Hi, bj.WHi}}
	ks := [2]struct {
		i int
		w float64
	}{{bk.Lo, bk.WLo}, {bk.Hi, bk.WHi}}

	n := 0
	for _, a := range hs {
		for _, b := range js {
			for _, c := range ks {
				corners[n] = corner{h: a.i, j: b.i, k: c.i, w: a.w * b.w * c.w}
				n++
			}
		}
	}
	return corners
}

// blend evaluates field at level l, weighted over the corners. Zero-weight
// corners are skipped so on-node queries return the stored value exactly.
func (p *GridProvider) blend(field []float64, corners [8]corner, l int) float64 {
	g := p.grid
	r := 0.0
	for _, c := range corners {
		if c.w == 0 {
			continue
		}
		r += field[g.index(c.h, l, c.j, c.k)] * c.w
	}
	return r
}

func (p *GridProvider) between(field []float64, corners [8]corner, l int, w float64) float64 {
	lower := p.blend(field, corners, l)
	if w == 0 {
		return lower
	}
	upper := p.blend(field, corners, l+1)
	if w == 1 {
		return upper
	}
	return lower*(1-w) + upper*w
}

func (p *GridProvider) levelAltitude(corners [8]corner, l int) float64 {
	if p.grid.alt == nil {
		return p.grid.levelAlt[l]
	}
	return p.blend(p.grid.alt, corners, l)
}

// searchLevel returns the highest level whose altitude is at or below alt,
// capped so that level+1 exists
func (p *GridProvider) searchLevel(corners [8]corner, alt float64) int {
	lower, upper := 0, p.grid.nl-2
	for lower < upper {
		mid := (lower + upper + 1) / 2
		if alt < p.levelAltitude(corners, mid) {
			upper = mid - 1
		} else {
			lower = mid
		}
	}
	return lower
}
