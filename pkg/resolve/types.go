package resolve

import (
	"context"

	"passage_router/pkg/geo"
)

// Candidate is one geocoding match for a place name.
type Candidate struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"displayName"`
	Importance  float64 `json:"importance"`
}

// Point returns the candidate's coordinate.
func (c Candidate) Point() geo.GeoPoint {
	return geo.GeoPoint{Lat: c.Lat, Lng: c.Lng}
}

// Lookup returns geocoding candidates for a place name within a country.
type Lookup interface {
	Lookup(ctx context.Context, place, country string) ([]Candidate, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, place, country string) ([]Candidate, error)

// Lookup implements Lookup.
func (f LookupFunc) Lookup(ctx context.Context, place, country string) ([]Candidate, error) {
	return f(ctx, place, country)
}

// RawLeg is one journey segment as logged.
type RawLeg struct {
	Index         int     `json:"index"`
	DepartureDate string  `json:"departureDate"`
	ArrivalDate   string  `json:"arrivalDate"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Country       string  `json:"country"`
	DistanceNM    float64 `json:"distanceNm"`
	Notes         string  `json:"notes"`
}

// Endpoint is a resolved coordinate with its provenance.
type Endpoint struct {
	Point       geo.GeoPoint
	Confidence  Confidence
	Method      Method
	DisplayName string
}

// ResolvedLeg is a leg whose endpoints have coordinates.
type ResolvedLeg struct {
	Leg     RawLeg
	From    Endpoint
	To      Endpoint
	Overall Confidence
}

func newResolvedLeg(leg RawLeg, from, to Endpoint) ResolvedLeg {
	return ResolvedLeg{Leg: leg, From: from, To: to, Overall: Weaker(from.Confidence, to.Confidence)}
}
