package atmosphere

import "math"

const (
	// Gravity is standard gravitational acceleration in m/s^2
	Gravity = 9.80665
	// GasConstant is the specific gas constant of dry air in J/(kg K)
	GasConstant = 287.05287
	// SeaLevelPressure in Pa
	SeaLevelPressure = 101325.0
	// SeaLevelTemperature in K
	SeaLevelTemperature = 288.15
	// SeaLevelDensity in kg/m^3
	SeaLevelDensity = 1.225

	earthRadius = 6356766.0
)

// isaLayer is one layer of the 1976 standard atmosphere. Base values are at
// the layer's lower geopotential altitude.
type isaLayer struct {
	base     float64 // geopotential m
	lapse    float64 // K/m
	baseTemp float64 // K
	basePres float64 // Pa
}

var isaLayers = []isaLayer{
	{0, -0.0065, 288.15, 101325.0},
	{11000, 0, 216.65, 22632.06},
	{20000, 0.001, 216.65, 5474.889},
	{32000, 0.0028, 228.65, 868.0187},
	{47000, 0, 270.65, 110.9063},
	{51000, -0.0028, 270.65, 66.93887},
	{71000, -0.002, 214.65, 3.956420},
}

func layerFor(h float64) isaLayer {
	l := isaLayers[0]
	for _, next := range isaLayers[1:] {
		if h < next.base {
			break
		}
		l = next
	}
	return l
}

// GeometricToGeopotential converts a geometric altitude to geopotential height
func GeometricToGeopotential(z float64) float64 {
	return earthRadius * z / (earthRadius + z)
}

// GeopotentialToGeometric converts geopotential height to geometric altitude
func GeopotentialToGeometric(h float64) float64 {
	return earthRadius * h / (earthRadius - h)
}

// StandardTemperature returns the ISA temperature in K at geometric altitude z
func StandardTemperature(z float64) float64 {
	h := GeometricToGeopotential(z)
	l := layerFor(h)
	return l.baseTemp + l.lapse*(h-l.base)
}

// StandardPressure returns the ISA pressure in Pa at geometric altitude z
func StandardPressure(z float64) float64 {
	h := GeometricToGeopotential(z)
	l := layerFor(h)
	if l.lapse == 0 {
		return l.basePres * math.Exp(-Gravity*(h-l.base)/(GasConstant*l.baseTemp))
	}
	t := l.baseTemp + l.lapse*(h-l.base)
	return l.basePres * math.Pow(t/l.baseTemp, -Gravity/(l.lapse*GasConstant))
}

// StandardDensity returns the ISA density in kg/m^3 at geometric altitude z
func StandardDensity(z float64) float64 {
	return Density(StandardPressure(z), StandardTemperature(z))
}

// PressureAltitude returns the geometric altitude at which the ISA pressure
// equals hPa hectopascals
func PressureAltitude(hPa float64) float64 {
	p := hPa * 100
	l := isaLayers[0]
	for _, next := range isaLayers[1:] {
		if p > next.basePres {
			break
		}
		l = next
	}

	var h float64
	if l.lapse == 0 {
		h = l.base - GasConstant*l.baseTemp/Gravity*math.Log(p/l.basePres)
	} else {
		h = l.base + l.baseTemp/l.lapse*(math.Pow(p/l.basePres, -l.lapse*GasConstant/Gravity)-1)
	}
	return GeopotentialToGeometric(h)
}

// Density applies the ideal gas law for dry air
func Density(pressure, temperature float64) float64 {
	return pressure / (GasConstant * temperature)
}
