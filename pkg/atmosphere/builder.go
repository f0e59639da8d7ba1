package atmosphere

import (
	"math"
	"time"
)

// Node identifies one grid point handed to a GridBuilder fill function
type Node struct {
	Hour     float64
	Level    float64 // hPa
	Lat      float64
	Lon      float64
	Altitude float64 // ISA altitude of the level
}

// NodeValues are the field values at one grid point. HGT is geopotential
// height in metres.
type NodeValues struct {
	U, V, W, T, HGT float64
}

// GridBuilder produces synthetic grids from a function of position, for
// tests and for generating sample datasets
type GridBuilder struct {
	spec                   GridSpec
	withW, withT, withHGTs bool
}

// NewGridBuilder starts a grid over the given axes
func NewGridBuilder(cycle time.Time, hours, levels, lats, lons []float64) *GridBuilder {
	return &GridBuilder{spec: GridSpec{
		CycleTime:     cycle,
		ForecastHours: hours,
		Levels:        levels,
		Latitudes:     lats,
		Longitudes:    lons,
	}}
}

// WithVerticalWind makes Build store the W field
func (b *GridBuilder) WithVerticalWind() *GridBuilder { b.withW = true; return b }

// WithTemperature makes Build store the T field
func (b *GridBuilder) WithTemperature() *GridBuilder { b.withT = true; return b }

// WithHeights makes Build store the HGT field
func (b *GridBuilder) WithHeights() *GridBuilder { b.withHGTs = true; return b }

// Build evaluates fill at every node and constructs the grid
func (b *GridBuilder) Build(fill func(Node) NodeValues) (*Grid, error) {
	s := b.spec
	size := len(s.ForecastHours) * len(s.Levels) * len(s.Latitudes) * len(s.Longitudes)
	s.U = make([]float64, 0, size)
	s.V = make([]float64, 0, size)
	if b.withW {
		s.W = make([]float64, 0, size)
	}
	if b.withT {
		s.T = make([]float64, 0, size)
	}
	if b.withHGTs {
		s.HGT = make([]float64, 0, size)
	}

	for _, h := range s.ForecastHours {
		for _, lev := range s.Levels {
			alt := PressureAltitude(lev)
			for _, lat := range s.Latitudes {
				for _, lon := range s.Longitudes {
					v := fill(Node{Hour: h, Level: lev, Lat: lat, Lon: lon, Altitude: alt})
					s.U = append(s.U, v.U)
					s.V = append(s.V, v.V)
					if b.withW {
						s.W = append(s.W, v.W)
					}
					if b.withT {
						s.T = append(s.T, v.T)
					}
					if b.withHGTs {
						s.HGT = append(s.HGT, v.HGT)
					}
				}
			}
		}
	}
	return NewGrid(s)
}

// CalmGrid returns a zero-wind ISA grid covering the given box, from the
// surface to 10 hPa, valid for hours forecast hours after cycle
func CalmGrid(cycle time.Time, hours float64, minLat, maxLat, minLon, maxLon float64) (*Grid, error) {
	return NewGridBuilder(cycle,
		[]float64{0, hours},
		StandardLevels(),
		[]float64{minLat, maxLat},
		[]float64{minLon, maxLon},
	).Build(func(Node) NodeValues { return NodeValues{} })
}

// StandardLevels returns a set of pressure levels from sea level to about 31 km
func StandardLevels() []float64 {
	return []float64{1013.25, 1000, 925, 850, 700, 500, 300, 250, 200, 150, 100, 70, 50, 30, 20, 10}
}

// JetStream is a synthetic wind profile blowing towards Direction (degrees
// true) whose speed rises from Surface to Peak at Altitude with a Gaussian
// falloff of Width metres. Temperatures and heights follow the ISA.
type JetStream struct {
	Surface   float64
	Peak      float64
	Altitude  float64
	Width     float64
	Direction float64
}

// Speed returns the wind speed of the profile at alt
func (j JetStream) Speed(alt float64) float64 {
	if j.Width <= 0 {
		return j.Surface
	}
	d := (alt - j.Altitude) / j.Width
	return j.Surface + (j.Peak-j.Surface)*math.Exp(-d*d)
}

// Fill is a GridBuilder fill function for the profile
func (j JetStream) Fill(n Node) NodeValues {
	s := j.Speed(n.Altitude)
	rad := j.Direction * math.Pi / 180
	return NodeValues{
		U:   s * math.Sin(rad),
		V:   s * math.Cos(rad),
		T:   StandardTemperature(n.Altitude),
		HGT: GeometricToGeopotential(n.Altitude),
	}
}
