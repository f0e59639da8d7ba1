package integrator

// Terrain gives the ground elevation (metres) under a point. A landing is
// detected when the altitude crosses it.
type Terrain interface {
	Elevation(lat, lon float64) float64
}

// FlatTerrain is ground at a constant elevation everywhere
type FlatTerrain struct {
	Height float64
}

func (f FlatTerrain) Elevation(lat, lon float64) float64 {
	return f.Height
}
