package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// MetersPerNauticalMile is the international nautical mile.
const MetersPerNauticalMile = 1852.0

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// HaversineNM returns the crow-flies distance between a and b in nautical miles.
func HaversineNM(a, b GeoPoint) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng) / MetersPerNauticalMile
}

// LengthNM returns the length of a polyline in nautical miles, summing the
// great-circle distance of each segment.
func LengthNM(path []GeoPoint) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += HaversineNM(path[i-1], path[i])
	}
	return total
}
