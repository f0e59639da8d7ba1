package atmosphere

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/picogrid/descent-simulations/pkg/simerr"
)

// WindLayer is a band of constant wind reaching up to Top metres. Direction
// is where the wind blows towards, in degrees clockwise from north.
type WindLayer struct {
	Top       float64 `yaml:"top" json:"top"`
	Speed     float64 `yaml:"speed" json:"speed"`
	Direction float64 `yaml:"direction" json:"direction"`
	Vertical  float64 `yaml:"vertical,omitempty" json:"vertical,omitempty"`
}

// LayeredProvider is a horizontally uniform atmosphere made of stacked
// constant-wind layers over the standard atmosphere. It answers anywhere on
// the globe below the top of its highest layer.
type LayeredProvider struct {
	layers   []WindLayer
	start    time.Time
	end      time.Time
	ceiling  float64
	eastward []float64
	north    []float64
}

var _ Provider = (*LayeredProvider)(nil)

// NewLayeredProvider sorts layers by top altitude and validates them. A zero
// start or end leaves the validity window open on that side.
func NewLayeredProvider(layers []WindLayer, start, end time.Time) (*LayeredProvider, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("at least one wind layer is required")
	}
	sorted := append([]WindLayer(nil), layers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Top < sorted[j].Top })

	p := &LayeredProvider{layers: sorted, start: start, end: end}
	for i, l := range sorted {
		if l.Top <= 0 {
			return nil, fmt.Errorf("layer %d: top must be above the surface", i)
		}
		if i > 0 && l.Top == sorted[i-1].Top {
			return nil, fmt.Errorf("layer %d: duplicate top %g m", i, l.Top)
		}
		if l.Speed < 0 || math.IsNaN(l.Speed) {
			return nil, fmt.Errorf("layer %d: wind speed must be non-negative", i)
		}
		rad := l.Direction * math.Pi / 180
		p.eastward = append(p.eastward, l.Speed*math.Sin(rad))
		p.north = append(p.north, l.Speed*math.Cos(rad))
	}
	p.ceiling = sorted[len(sorted)-1].Top
	return p, nil
}

// NewUniformProvider is a single layer of constant wind up to ceiling
func NewUniformProvider(speed, direction, ceiling float64) (*LayeredProvider, error) {
	return NewLayeredProvider([]WindLayer{{Top: ceiling, Speed: speed, Direction: direction}}, time.Time{}, time.Time{})
}

// Layers returns the layers ordered from the surface up
func (p *LayeredProvider) Layers() []WindLayer {
	return append([]WindLayer(nil), p.layers...)
}

// Coverage implements Provider
func (p *LayeredProvider) Coverage() Coverage {
	return Coverage{
		Start:        p.start,
		End:          p.end,
		MinLatitude:  -90,
		MaxLatitude:  90,
		MinLongitude: 0,
		MaxLongitude: 360,
		GlobalLon:    true,
		MaxAltitude:  p.ceiling,
	}
}

// Sample implements Provider
func (p *LayeredProvider) Sample(lat, lon, alt float64, at time.Time) (Sample, error) {
	if err := checkLatitude(lat, -90, 90); err != nil {
		return Sample{}, err
	}
	if err := checkFinite("longitude", lon); err != nil {
		return Sample{}, err
	}
	if err := checkFinite("altitude", alt); err != nil {
		return Sample{}, err
	}
	if !p.Coverage().ContainsTime(at) {
		return Sample{}, &simerr.OutOfBoundsError{
			Axis:  "time",
			Value: float64(at.Unix()),
			Min:   float64(p.start.Unix()),
			Max:   float64(p.end.Unix()),
		}
	}
	if alt > p.ceiling {
		return Sample{}, &simerr.OutOfBoundsError{Axis: "altitude", Value: alt, Min: 0, Max: p.ceiling}
	}

	i := sort.Search(len(p.layers), func(i int) bool { return alt <= p.layers[i].Top })
	temp := StandardTemperature(alt)
	pres := StandardPressure(alt)
	return Sample{
		WindEast:    p.eastward[i],
		WindNorth:   p.north[i],
		WindUp:      p.layers[i].Vertical,
		Temperature: temp,
		Pressure:    pres,
		Density:     Density(pres, temp),
	}, nil
}
