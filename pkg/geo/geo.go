// Package geo holds the coordinate conventions shared by the predictor.
//
// Longitudes are carried in [0, 360) everywhere inside the core. Inputs in
// any other range are normalised on entry with NormalizeLongitude and only
// converted back with SignedLongitude for display.
package geo

import "math"

// EarthRadius is the mean Earth radius in metres
const EarthRadius = 6371009.0

// Point is a geographic position in degrees
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// NormalizeLongitude maps lon into [0, 360)
func NormalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	// -1e-15 + 360 rounds to 360
	if lon >= 360 {
		lon = 0
	}
	return lon
}

// SignedLongitude maps lon into (-180, 180]
func SignedLongitude(lon float64) float64 {
	lon = NormalizeLongitude(lon)
	if lon > 180 {
		lon -= 360
	}
	return lon
}

// ValidLatitude reports whether lat is a finite latitude in [-90, 90]
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// LongitudeDelta returns the signed shortest difference b-a in degrees
func LongitudeDelta(a, b float64) float64 {
	d := NormalizeLongitude(b - a)
	if d > 180 {
		d -= 360
	}
	return d
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle distance between a and b in metres
func Distance(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(LongitudeDelta(a.Lon, b.Lon))

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// InitialBearing returns the bearing from a to b in degrees clockwise from
// north, in [0, 360). Coincident points give 0.
func InitialBearing(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLon := radians(LongitudeDelta(a.Lon, b.Lon))

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	if x == 0 && y == 0 {
		return 0
	}
	return NormalizeLongitude(degrees(math.Atan2(y, x)))
}

// Offset moves p by east and north metres on a locally flat earth
func Offset(p Point, east, north float64) Point {
	lat := p.Lat + degrees(north/EarthRadius)
	lon := p.Lon + degrees(east/(EarthRadius*math.Cos(radians(p.Lat))))
	return Point{Lat: lat, Lon: NormalizeLongitude(lon)}
}

// LocalOffset returns the east and north metres from origin to p on a
// locally flat earth. It is the inverse of Offset.
func LocalOffset(origin, p Point) (east, north float64) {
	north = radians(p.Lat-origin.Lat) * EarthRadius
	east = radians(LongitudeDelta(origin.Lon, p.Lon)) * EarthRadius * math.Cos(radians(origin.Lat))
	return east, north
}

// VelocityToAngularRate converts an east/north ground velocity (m/s) at the
// given latitude and altitude into degrees of latitude and longitude per
// second. The caller must keep lat away from the poles.
func VelocityToAngularRate(lat, alt, east, north float64) (dLat, dLon float64) {
	r := EarthRadius + alt
	dLat = degrees(north / r)
	dLon = degrees(east / (r * math.Cos(radians(lat))))
	return dLat, dLon
}
