package scenario

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/picogrid/descent-simulations/pkg/geo"
	"github.com/picogrid/descent-simulations/pkg/integrator"
)

// Ellipse is the one-sigma spread of the landing points. Orientation is the
// bearing of the major axis in degrees clockwise from north, in [0, 180).
type Ellipse struct {
	SemiMajor   float64 `json:"semi_major"` // metres
	SemiMinor   float64 `json:"semi_minor"` // metres
	Orientation float64 `json:"orientation"`
}

// BoundingBox encloses every landing point. Longitudes are relative to the
// reference so a box may straddle the antimeridian.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Statistics summarise the landings of an ensemble. Offsets are measured on
// a local east/north plane around the reference point.
type Statistics struct {
	Count              int           `json:"count"`
	Centroid           geo.Point     `json:"centroid"`
	CentroidEast       float64       `json:"centroid_east"`  // metres from the reference
	CentroidNorth      float64       `json:"centroid_north"` // metres from the reference
	EastStdDev         float64       `json:"east_stddev"`
	NorthStdDev        float64       `json:"north_stddev"`
	Ellipse            Ellipse       `json:"ellipse"`
	Bounds             BoundingBox   `json:"bounds"`
	MedianMiss         float64       `json:"median_miss"` // metres from the centroid
	P95Miss            float64       `json:"p95_miss"`
	MaxMiss            float64       `json:"max_miss"`
	MeanFlightDuration time.Duration `json:"mean_flight_duration"`
}

// ComputeStatistics summarises landings around ref. It returns nil when
// there is nothing to summarise.
func ComputeStatistics(ref geo.Point, landings []integrator.Landing) *Statistics {
	if len(landings) == 0 {
		return nil
	}

	n := len(landings)
	east := make(stats.Float64Data, n)
	north := make(stats.Float64Data, n)
	lats := make(stats.Float64Data, n)
	lons := make(stats.Float64Data, n)
	flight := make(stats.Float64Data, n)
	for i, l := range landings {
		east[i], north[i] = geo.LocalOffset(ref, l.Point())
		lats[i] = l.Lat
		lons[i] = ref.Lon + geo.LongitudeDelta(ref.Lon, l.Lon)
		flight[i] = l.FlightDuration.Seconds()
	}

	s := &Statistics{Count: n}
	s.CentroidEast = value(east.Mean())
	s.CentroidNorth = value(north.Mean())
	s.Centroid = geo.Offset(ref, s.CentroidEast, s.CentroidNorth)
	s.EastStdDev = value(east.StandardDeviationPopulation())
	s.NorthStdDev = value(north.StandardDeviationPopulation())
	s.Ellipse = spreadEllipse(
		s.EastStdDev*s.EastStdDev,
		s.NorthStdDev*s.NorthStdDev,
		value(stats.CovariancePopulation(east, north)),
	)

	s.Bounds = BoundingBox{
		MinLat: value(lats.Min()),
		MaxLat: value(lats.Max()),
		MinLon: geo.SignedLongitude(value(lons.Min())),
		MaxLon: geo.SignedLongitude(value(lons.Max())),
	}

	miss := make(stats.Float64Data, n)
	for i := range landings {
		miss[i] = math.Hypot(east[i]-s.CentroidEast, north[i]-s.CentroidNorth)
	}
	s.MedianMiss = value(miss.Median())
	s.P95Miss = value(miss.Percentile(95))
	s.MaxMiss = value(miss.Max())
	s.MeanFlightDuration = time.Duration(value(flight.Mean()) * float64(time.Second))
	return s
}

// spreadEllipse returns the principal axes of the east/north covariance
// matrix [[ee en] [en nn]]
func spreadEllipse(ee, nn, en float64) Ellipse {
	mean := (ee + nn) / 2
	radius := math.Hypot((ee-nn)/2, en)
	major := mean + radius
	minor := math.Max(mean-radius, 0)

	// angle of the major axis from east, counter-clockwise
	theta := 0.5 * math.Atan2(2*en, ee-nn)
	bearing := math.Mod(90-theta*180/math.Pi+360, 180)
	return Ellipse{
		SemiMajor:   math.Sqrt(major),
		SemiMinor:   math.Sqrt(minor),
		Orientation: bearing,
	}
}

func value(v float64, err error) float64 {
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}
