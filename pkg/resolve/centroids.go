package resolve

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"passage_router/pkg/geo"
)

//go:embed centroids.json
var defaultCentroidsJSON []byte

// Centroids maps a normalized country key to a representative coordinate.
// Every country is reachable both by name and by ISO 3166-1 alpha-2 code.
type Centroids map[string]geo.GeoPoint

type centroidEntry struct {
	Name string  `json:"name"`
	ISO  string  `json:"iso"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// DefaultCentroids returns the built-in country table.
func DefaultCentroids() Centroids {
	c, err := parseCentroids(defaultCentroidsJSON)
	if err != nil {
		panic("resolve: embedded centroids: " + err.Error())
	}
	return c
}

// LoadCentroids reads a centroid table in the same JSON form as the
// built-in one.
func LoadCentroids(r io.Reader) (Centroids, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read centroids: %w", err)
	}
	return parseCentroids(data)
}

func parseCentroids(data []byte) (Centroids, error) {
	var entries []centroidEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse centroids: %w", err)
	}
	c := make(Centroids, 2*len(entries))
	for i, e := range entries {
		p := geo.GeoPoint{Lat: e.Lat, Lng: e.Lng}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("centroid %d (%s): %w", i, e.Name, err)
		}
		if e.Name == "" && e.ISO == "" {
			return nil, fmt.Errorf("centroid %d has neither name nor iso code", i)
		}
		if e.Name != "" {
			c[normalizeCountry(e.Name)] = p
		}
		if e.ISO != "" {
			c[normalizeCountry(e.ISO)] = p
		}
	}
	return c, nil
}

// Lookup returns the centroid for a country name or ISO code.
func (c Centroids) Lookup(country string) (geo.GeoPoint, bool) {
	key := normalizeCountry(country)
	if key == "" {
		return geo.GeoPoint{}, false
	}
	p, ok := c[key]
	return p, ok
}

func normalizeCountry(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
