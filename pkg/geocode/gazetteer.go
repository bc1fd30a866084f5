// Package geocode resolves place names to candidate coordinates from an
// offline gazetteer built from OpenStreetMap place nodes.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"passage_router/pkg/resolve"
)

// DefaultLimit caps the candidates returned per lookup.
const DefaultLimit = 10

// Place is one named location.
type Place struct {
	Name       string   `json:"name"`
	AltNames   []string `json:"altNames,omitempty"`
	Country    string   `json:"country,omitempty"` // ISO code or name, as tagged
	Kind       string   `json:"kind"`
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	Importance float64  `json:"importance"`
}

// Gazetteer is an in-memory name index. It is read-only once built.
type Gazetteer struct {
	places []Place
	byName map[string][]int
	limit  int
}

// NewGazetteer indexes places by their primary and alternative names.
func NewGazetteer(places []Place) *Gazetteer {
	g := &Gazetteer{places: places, byName: make(map[string][]int), limit: DefaultLimit}
	for i, p := range places {
		seen := make(map[string]bool, 1+len(p.AltNames))
		for _, name := range append([]string{p.Name}, p.AltNames...) {
			key := normalizeName(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			g.byName[key] = append(g.byName[key], i)
		}
	}
	return g
}

// SetLimit caps the number of candidates per lookup. n <= 0 keeps the default.
func (g *Gazetteer) SetLimit(n int) {
	if n > 0 {
		g.limit = n
	}
}

// Len returns the number of indexed places.
func (g *Gazetteer) Len() int { return len(g.places) }

// Lookup implements resolve.Lookup. Places tagged with the requested country
// are preferred; when none are, every place with the name is returned.
// Candidates are ordered by importance.
func (g *Gazetteer) Lookup(ctx context.Context, place, country string) ([]resolve.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idxs := g.byName[normalizeName(place)]
	if len(idxs) == 0 {
		return nil, nil
	}

	if want := normalizeName(country); want != "" {
		var inCountry []int
		for _, i := range idxs {
			if normalizeName(g.places[i].Country) == want {
				inCountry = append(inCountry, i)
			}
		}
		if len(inCountry) > 0 {
			idxs = inCountry
		}
	}

	cands := make([]resolve.Candidate, 0, len(idxs))
	for _, i := range idxs {
		p := g.places[i]
		cands = append(cands, resolve.Candidate{
			Lat:         p.Lat,
			Lng:         p.Lng,
			DisplayName: displayName(p),
			Importance:  p.Importance,
		})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Importance > cands[j].Importance })
	if len(cands) > g.limit {
		cands = cands[:g.limit]
	}
	return cands, nil
}

func displayName(p Place) string {
	if p.Country == "" {
		return p.Name
	}
	return p.Name + ", " + p.Country
}

// normalizeName folds case, strips diacritics and collapses whitespace and
// punctuation so that "Saint-Malo" and "saint malo" match.
func normalizeName(s string) string {
	var b strings.Builder
	space := false
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		default:
			space = true
		}
	}
	return b.String()
}

// ReadPlaces decodes a gazetteer file.
func ReadPlaces(r io.Reader) ([]Place, error) {
	var places []Place
	if err := json.NewDecoder(r).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}
	return places, nil
}

// WritePlaces encodes a gazetteer file.
func WritePlaces(w io.Writer, places []Place) error {
	if err := json.NewEncoder(w).Encode(places); err != nil {
		return fmt.Errorf("encode gazetteer: %w", err)
	}
	return nil
}
