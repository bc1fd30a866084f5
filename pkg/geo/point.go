package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether p is a finite coordinate inside the lat/lng ranges.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

// Orb returns p as an orb.Point ([lng, lat]).
func (p GeoPoint) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// FromOrb converts an orb.Point ([lng, lat]) back to a GeoPoint.
func FromOrb(p orb.Point) GeoPoint {
	return GeoPoint{Lat: p.Lat(), Lng: p.Lon()}
}

// LineString converts a path to an orb.LineString.
func LineString(path []GeoPoint) orb.LineString {
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = p.Orb()
	}
	return ls
}

// FromLineString converts an orb.LineString to a path.
func FromLineString(ls orb.LineString) []GeoPoint {
	path := make([]GeoPoint, len(ls))
	for i, p := range ls {
		path[i] = FromOrb(p)
	}
	return path
}

// Bearing returns the initial bearing from a to b in degrees.
func Bearing(a, b GeoPoint) float64 {
	return orbgeo.Bearing(a.Orb(), b.Orb())
}

// Destination returns the point reached from p after travelling distNM
// nautical miles along the given initial bearing.
func Destination(p GeoPoint, bearingDeg, distNM float64) GeoPoint {
	return FromOrb(orbgeo.PointAtBearingAndDistance(p.Orb(), bearingDeg, distNM*MetersPerNauticalMile))
}
