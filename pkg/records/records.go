// Package records converts between pipeline values and the JSON records
// exchanged with the surrounding migration tooling.
package records

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"passage_router/pkg/geo"
	"passage_router/pkg/resolve"
	"passage_router/pkg/synth"
)

// LegRecord is a resolved leg as stored for review.
type LegRecord struct {
	Index             int                `json:"index"`
	DepartureDate     string             `json:"departureDate"`
	ArrivalDate       string             `json:"arrivalDate"`
	From              string             `json:"from"`
	To                string             `json:"to"`
	Country           string             `json:"country"`
	DistanceNM        float64            `json:"distanceNm"`
	Notes             string             `json:"notes"`
	FromLat           float64            `json:"fromLat"`
	FromLng           float64            `json:"fromLng"`
	FromConfidence    resolve.Confidence `json:"fromConfidence"`
	FromMethod        resolve.Method     `json:"fromMethod"`
	ToLat             float64            `json:"toLat"`
	ToLng             float64            `json:"toLng"`
	ToConfidence      resolve.Confidence `json:"toConfidence"`
	ToMethod          resolve.Method     `json:"toMethod"`
	OverallConfidence resolve.Confidence `json:"overallConfidence"`
}

// FromResolvedLeg flattens a resolved leg.
func FromResolvedLeg(rl resolve.ResolvedLeg) LegRecord {
	return LegRecord{
		Index:             rl.Leg.Index,
		DepartureDate:     rl.Leg.DepartureDate,
		ArrivalDate:       rl.Leg.ArrivalDate,
		From:              rl.Leg.From,
		To:                rl.Leg.To,
		Country:           rl.Leg.Country,
		DistanceNM:        rl.Leg.DistanceNM,
		Notes:             rl.Leg.Notes,
		FromLat:           rl.From.Point.Lat,
		FromLng:           rl.From.Point.Lng,
		FromConfidence:    rl.From.Confidence,
		FromMethod:        rl.From.Method,
		ToLat:             rl.To.Point.Lat,
		ToLng:             rl.To.Point.Lng,
		ToConfidence:      rl.To.Confidence,
		ToMethod:          rl.To.Method,
		OverallConfidence: rl.Overall,
	}
}

// ToResolvedLeg rebuilds a resolved leg so that resolution can resume after
// it. Display names are not stored and come back empty.
func (r LegRecord) ToResolvedLeg() (resolve.ResolvedLeg, error) {
	from := geo.GeoPoint{Lat: r.FromLat, Lng: r.FromLng}
	to := geo.GeoPoint{Lat: r.ToLat, Lng: r.ToLng}
	if err := from.Validate(); err != nil {
		return resolve.ResolvedLeg{}, fmt.Errorf("leg %d from: %w", r.Index, err)
	}
	if err := to.Validate(); err != nil {
		return resolve.ResolvedLeg{}, fmt.Errorf("leg %d to: %w", r.Index, err)
	}
	if r.FromConfidence == 0 || r.ToConfidence == 0 {
		return resolve.ResolvedLeg{}, fmt.Errorf("leg %d: missing confidence", r.Index)
	}
	return resolve.ResolvedLeg{
		Leg: resolve.RawLeg{
			Index:         r.Index,
			DepartureDate: r.DepartureDate,
			ArrivalDate:   r.ArrivalDate,
			From:          r.From,
			To:            r.To,
			Country:       r.Country,
			DistanceNM:    r.DistanceNM,
			Notes:         r.Notes,
		},
		From:    resolve.Endpoint{Point: from, Confidence: r.FromConfidence, Method: r.FromMethod},
		To:      resolve.Endpoint{Point: to, Confidence: r.ToConfidence, Method: r.ToMethod},
		Overall: resolve.Weaker(r.FromConfidence, r.ToConfidence),
	}, nil
}

// RouteRecord is a synthesized route as stored for review.
type RouteRecord struct {
	Index          int                `json:"index"`
	From           string             `json:"from"`
	To             string             `json:"to"`
	LoggedDistNM   float64            `json:"loggedDistNm"`
	SearouteDistNM *float64           `json:"searouteDistNm"`
	DistRatio      *float64           `json:"distRatio"`
	UsedFallback   bool               `json:"usedFallback"`
	Confidence     resolve.Confidence `json:"confidence"`
	Route          *geojson.Geometry  `json:"route"`
}

// FromRoute converts a synthesized route.
func FromRoute(rec synth.RouteRecord) RouteRecord {
	return RouteRecord{
		Index:          rec.LegIndex,
		From:           rec.From,
		To:             rec.To,
		LoggedDistNM:   rec.LoggedDistanceNM,
		SearouteDistNM: rec.ComputedDistanceNM,
		DistRatio:      rec.DistanceRatio,
		UsedFallback:   rec.UsedFallback,
		Confidence:     rec.Confidence,
		Route:          geojson.NewGeometry(rec.Geometry),
	}
}

// LineString returns the stored route geometry.
func (r RouteRecord) LineString() (orb.LineString, error) {
	if r.Route == nil {
		return nil, fmt.Errorf("route %d has no geometry", r.Index)
	}
	ls, ok := r.Route.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("route %d geometry is %s, want LineString", r.Index, r.Route.Type)
	}
	return ls, nil
}

// ReadLegs decodes raw legs and orders them by index.
func ReadLegs(r io.Reader) ([]resolve.RawLeg, error) {
	var legs []resolve.RawLeg
	if err := json.NewDecoder(r).Decode(&legs); err != nil {
		return nil, fmt.Errorf("decode legs: %w", err)
	}
	seen := make(map[int]bool, len(legs))
	for _, l := range legs {
		if seen[l.Index] {
			return nil, fmt.Errorf("duplicate leg index %d", l.Index)
		}
		seen[l.Index] = true
		if math.IsNaN(l.DistanceNM) || math.IsInf(l.DistanceNM, 0) || l.DistanceNM < 0 {
			return nil, fmt.Errorf("leg %d: invalid distance %v", l.Index, l.DistanceNM)
		}
	}
	sort.SliceStable(legs, func(i, j int) bool { return legs[i].Index < legs[j].Index })
	return legs, nil
}

// ReadLegRecords decodes previously written leg records.
func ReadLegRecords(r io.Reader) ([]LegRecord, error) {
	var recs []LegRecord
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode leg records: %w", err)
	}
	return recs, nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
