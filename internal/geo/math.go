package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadius is the mean sphere radius in meters used for distances.
const EarthRadius = 6371000.0

// MaxLat is the latitude limit of the Web Mercator projection.
const MaxLat = 85.05112878

const rad = math.Pi / 180

// Distance returns the haversine great-circle distance in meters between
// two lon/lat points.
func Distance(a, b orb.Point) float64 {
	lat1 := a.Lat() * rad
	lat2 := b.Lat() * rad
	sinDLat := math.Sin((b.Lat() - a.Lat()) * rad / 2)
	sinDLon := math.Sin((b.Lon() - a.Lon()) * rad / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadius * c
}

// LineLength sums the distance between consecutive points and rounds the
// total to whole meters. Fewer than two points yield 0.
func LineLength(ls orb.LineString) int64 {
	var length float64
	for i := 1; i < len(ls); i++ {
		length += Distance(ls[i-1], ls[i])
	}

	return int64(math.Round(length))
}

// Mercator projects a lon/lat point into normalized Web Mercator space,
// x and y in [0..1] with y growing southwards.
func Mercator(p orb.Point) (x, y float64) {
	lat := p.Lat()
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	x = (p.Lon() + 180.0) / 360.0
	sinLat := math.Sin(lat * rad)
	y = 0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)

	return x, y
}
