package geocode

import "math"

// earthRadiusMiles is the mean Earth radius used for all stored distances.
const earthRadiusMiles = 3958.7613

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// UK bounding box. Anything outside is a geocoding failure, not a venue.
const (
	ukMinLat = 49.0
	ukMaxLat = 61.0
	ukMinLng = -11.0
	ukMaxLng = 2.0
)

// InUK reports whether the point falls inside the UK bounding box.
func InUK(p Point) bool {
	return p.Lat >= ukMinLat && p.Lat <= ukMaxLat && p.Lng >= ukMinLng && p.Lng <= ukMaxLng
}

// Miles returns the haversine great-circle distance between two points.
func Miles(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
