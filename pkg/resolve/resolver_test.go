package resolve

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passage_router/pkg/geo"
)

// mockLookup serves canned candidates per place name.
type mockLookup struct {
	places map[string][]Candidate
	fail   map[string]error
	calls  atomic.Int32
}

func (m *mockLookup) Lookup(ctx context.Context, place, country string) ([]Candidate, error) {
	m.calls.Add(1)
	if err := m.fail[place]; err != nil {
		return nil, err
	}
	return m.places[place], nil
}

var origin = geo.GeoPoint{Lat: 43.30, Lng: 5.37} // Marseille

// cand places a candidate distNM nautical miles from ref along bearing.
func cand(t *testing.T, name string, ref geo.GeoPoint, bearing, distNM, importance float64) Candidate {
	t.Helper()
	p := geo.Destination(ref, bearing, distNM)
	return Candidate{Lat: p.Lat, Lng: p.Lng, DisplayName: name, Importance: importance}
}

func newTestResolver(places map[string][]Candidate) (*Resolver, *mockLookup) {
	m := &mockLookup{places: places}
	return NewResolver(m, DefaultThresholds(), nil, nil), m
}

// prevAt is a previously resolved leg ending at p.
func prevAt(p geo.GeoPoint) *ResolvedLeg {
	to := Endpoint{Point: p, Confidence: Green, Method: MethodSingle, DisplayName: "Prev"}
	rl := newResolvedLeg(RawLeg{Index: 0}, to, to)
	return &rl
}

func TestNewResolverFillsInvalidThresholds(t *testing.T) {
	def := DefaultThresholds()
	tests := []struct {
		name string
		th   Thresholds
		want Thresholds
	}{
		{"zero value", Thresholds{}, def},
		{"negative and NaN", Thresholds{
			ContinuityBudgetNM: -5,
			DistanceTolerance:  math.NaN(),
			AmbiguityGapNM:     0,
			InheritThresholdNM: -1,
		}, def},
		{"valid fields kept", Thresholds{ContinuityBudgetNM: 50, AmbiguityGapNM: 2}, Thresholds{
			ContinuityBudgetNM: 50,
			DistanceTolerance:  def.DistanceTolerance,
			AmbiguityGapNM:     2,
			InheritThresholdNM: def.InheritThresholdNM,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&mockLookup{}, tt.th, nil, nil)
			assert.Equal(t, tt.want, r.th)
			assert.NoError(t, r.th.Validate())
		})
	}
}

func TestZeroThresholdsStillFilterByDistance(t *testing.T) {
	prev := prevAt(origin)
	near := cand(t, "Near", origin, 90, 5, 0.1)
	far := cand(t, "Far", origin, 90, 400, 0.9)
	m := &mockLookup{places: map[string][]Candidate{"Port": {far, near}}}
	r := NewResolver(m, Thresholds{}, nil, nil)

	rl, err := r.ResolveLeg(context.Background(), RawLeg{Index: 1, From: "Port"}, prev)
	require.NoError(t, err)
	assert.Equal(t, near.Point(), rl.From.Point)
	assert.Equal(t, Green, rl.From.Confidence)
}

func TestPickSingleCandidateWithinBudget(t *testing.T) {
	const d = 100.0
	target := cand(t, "Only", origin, 200, 0.9*d, 0.5)
	r, _ := newTestResolver(nil)

	ep := r.pick([]Candidate{target}, &origin, d)
	assert.Equal(t, Green, ep.Confidence)
	assert.Equal(t, MethodSingle, ep.Method)
	assert.Equal(t, target.Point(), ep.Point)
}

func TestPickSingleCandidateBeyondBudget(t *testing.T) {
	const d = 100.0
	target := cand(t, "Only", origin, 45, 3*d, 0.5)
	r, _ := newTestResolver(nil)

	ep := r.pick([]Candidate{target}, &origin, d)
	assert.Equal(t, Green, ep.Confidence)
	assert.Equal(t, MethodSingle, ep.Method)
	assert.Equal(t, target.Point(), ep.Point)
}

func TestPickRankedByBudgetUse(t *testing.T) {
	tests := []struct {
		name   string
		budget float64
		want   Confidence
	}{
		{"clear lead", 100, Green},        // gap 55 nm
		{"lead just over gap", 20, Green}, // gap 11 nm
		{"ambiguous", 15, Yellow},         // gap 8.25 nm
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			far := cand(t, "Far", origin, 90, 0.95*tt.budget, 0.1)
			near := cand(t, "Near", origin, 270, 0.4*tt.budget, 0.9)
			r, _ := newTestResolver(nil)

			ep := r.pick([]Candidate{near, far}, &origin, tt.budget)
			assert.Equal(t, "Far", ep.DisplayName)
			assert.Equal(t, MethodRanked, ep.Method)
			assert.Equal(t, tt.want, ep.Confidence)
		})
	}
}

func TestPickFilters(t *testing.T) {
	const d = 50.0
	inside := cand(t, "Inside", origin, 0, 40, 0.2)
	tooFar := cand(t, "TooFar", origin, 180, 61, 0.9) // beyond 1.2 × 50
	wayOff := cand(t, "WayOff", origin, 90, 300, 0.9)
	r, _ := newTestResolver(nil)

	t.Run("one survivor among several", func(t *testing.T) {
		ep := r.pick([]Candidate{tooFar, inside, wayOff}, &origin, d)
		assert.Equal(t, "Inside", ep.DisplayName)
		assert.Equal(t, Green, ep.Confidence)
		assert.Equal(t, MethodFiltered, ep.Method)
	})
	t.Run("no survivors picks closest to budget", func(t *testing.T) {
		ep := r.pick([]Candidate{wayOff, tooFar}, &origin, d)
		assert.Equal(t, "TooFar", ep.DisplayName)
		assert.Equal(t, Yellow, ep.Confidence)
		assert.Equal(t, MethodClosest, ep.Method)
	})
	t.Run("lone candidate out of budget is still accepted", func(t *testing.T) {
		ep := r.pick([]Candidate{wayOff}, &origin, d)
		assert.Equal(t, Green, ep.Confidence)
		assert.Equal(t, MethodSingle, ep.Method)
	})
}

func TestPickWithoutReference(t *testing.T) {
	a := Candidate{Lat: 1, Lng: 1, DisplayName: "A", Importance: 0.3}
	b := Candidate{Lat: 2, Lng: 2, DisplayName: "B", Importance: 0.7}
	c := Candidate{Lat: 3, Lng: 3, DisplayName: "C", Importance: 0.7}
	r, _ := newTestResolver(nil)

	ep := r.pick([]Candidate{a}, nil, 20)
	assert.Equal(t, Green, ep.Confidence)
	assert.Equal(t, MethodSingle, ep.Method)

	ep = r.pick([]Candidate{a, b, c}, nil, 20)
	assert.Equal(t, "B", ep.DisplayName, "first of equally important candidates")
	assert.Equal(t, Yellow, ep.Confidence)
	assert.Equal(t, MethodImportance, ep.Method)

	// Unknown logged distance behaves like no reference.
	ep = r.pick([]Candidate{a, b}, &origin, 0)
	assert.Equal(t, MethodImportance, ep.Method)
}

func TestResolveLegZeroToCandidates(t *testing.T) {
	start := Candidate{Lat: origin.Lat, Lng: origin.Lng, DisplayName: "Marseille", Importance: 0.8}

	tests := []struct {
		name    string
		country string
		dist    float64
		method  Method
	}{
		{"projected toward centroid", "Italy", 120, MethodProjected},
		{"centroid without distance", "IT", 0, MethodCentroid},
		{"origin when country unknown", "Atlantis", 120, MethodUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(map[string][]Candidate{"Marseille": {start}})
			leg := RawLeg{Index: 1, From: "Marseille", To: "Nowhere Cove", Country: tt.country, DistanceNM: tt.dist}

			rl, err := r.ResolveLeg(context.Background(), leg, nil)
			require.NoError(t, err)
			assert.Equal(t, Red, rl.To.Confidence)
			assert.Equal(t, tt.method, rl.To.Method)
			assert.NoError(t, rl.To.Point.Validate())
			assert.Equal(t, Red, rl.Overall)
			assert.Equal(t, Green, rl.From.Confidence)
		})
	}
}

func TestToFallbackProjectionStopsAtCentroid(t *testing.T) {
	r, _ := newTestResolver(nil)
	italy, _ := DefaultCentroids().Lookup("italy")

	short := r.toFallback(RawLeg{Country: "Italy", DistanceNM: 50}, origin)
	assert.InDelta(t, 50, geo.HaversineNM(origin, short.Point), 0.5)

	// A logged distance past the centroid stops at it.
	long := r.toFallback(RawLeg{Country: "Italy", DistanceNM: 5000}, origin)
	assert.InDelta(t, 0, geo.HaversineNM(italy, long.Point), 1)
}

func TestResolveLegFromFallbacks(t *testing.T) {
	r, _ := newTestResolver(nil)

	prev := prevAt(origin)
	rl, err := r.ResolveLeg(context.Background(), RawLeg{From: "Unknown", Country: "France"}, prev)
	require.NoError(t, err)
	assert.Equal(t, MethodPreviousLeg, rl.From.Method)
	assert.Equal(t, origin, rl.From.Point)
	assert.Equal(t, Red, rl.From.Confidence)

	rl, err = r.ResolveLeg(context.Background(), RawLeg{From: "Unknown", Country: "France"}, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodCentroid, rl.From.Method)

	rl, err = r.ResolveLeg(context.Background(), RawLeg{From: "Unknown", Country: ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodUnknown, rl.From.Method)
	assert.Equal(t, geo.GeoPoint{}, rl.From.Point)
}

func TestResolveLegLookupErrorIsRed(t *testing.T) {
	m := &mockLookup{fail: map[string]error{"Toulon": errors.New("geocoder down")}}
	r := NewResolver(m, DefaultThresholds(), nil, nil)

	rl, err := r.ResolveLeg(context.Background(), RawLeg{From: "Toulon", To: "Toulon", Country: "France", DistanceNM: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, Red, rl.From.Confidence)
	assert.Equal(t, Red, rl.To.Confidence)
	assert.Equal(t, int32(2), m.calls.Load())
}

func TestResolveLegsInheritsAcrossImplausibleJump(t *testing.T) {
	porquerolles := cand(t, "Porquerolles", origin, 110, 40, 0.5)
	// Leg 2 departs from a place whose only match is 50 nm from where leg 1
	// arrived.
	portCros := cand(t, "Port-Cros (wrong)", porquerolles.Point(), 0, 50, 0.5)
	calvi := cand(t, "Calvi", porquerolles.Point(), 120, 90, 0.6)
	ajaccio := cand(t, "Ajaccio", calvi.Point(), 170, 45, 0.7)

	r, _ := newTestResolver(map[string][]Candidate{
		"Marseille":    {{Lat: origin.Lat, Lng: origin.Lng, DisplayName: "Marseille", Importance: 0.9}},
		"Porquerolles": {porquerolles},
		"Port-Cros":    {portCros},
		"Calvi":        {calvi},
		"Ajaccio":      {ajaccio},
	})
	legs := []RawLeg{
		{Index: 1, From: "Marseille", To: "Porquerolles", Country: "France", DistanceNM: 42},
		{Index: 2, From: "Port-Cros", To: "Calvi", Country: "France", DistanceNM: 95},
		{Index: 3, From: "Calvi", To: "Ajaccio", Country: "France", DistanceNM: 48},
	}

	got, err := r.ResolveLegs(context.Background(), legs)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, Green, got[0].Overall)
	assert.Equal(t, porquerolles.Point(), got[0].To.Point)

	assert.Equal(t, MethodInherited, got[1].From.Method)
	assert.Equal(t, Yellow, got[1].From.Confidence)
	assert.Equal(t, got[0].To.Point, got[1].From.Point)
	assert.Equal(t, calvi.Point(), got[1].To.Point)
	assert.Equal(t, Yellow, got[1].Overall)

	assert.Equal(t, calvi.Point(), got[2].From.Point)
	assert.Equal(t, Green, got[2].From.Confidence)
	assert.Equal(t, ajaccio.Point(), got[2].To.Point)
	for i, rl := range got {
		assert.Equal(t, legs[i], rl.Leg)
	}
}

func TestResolveFromResumes(t *testing.T) {
	a := cand(t, "A", origin, 90, 30, 0.5)
	b := cand(t, "B", a.Point(), 90, 30, 0.5)
	c := cand(t, "C", b.Point(), 90, 30, 0.5)
	r, _ := newTestResolver(map[string][]Candidate{
		"O": {{Lat: origin.Lat, Lng: origin.Lng, DisplayName: "O"}},
		"A": {a}, "B": {b}, "C": {c},
	})
	legs := []RawLeg{
		{Index: 1, From: "O", To: "A", DistanceNM: 32},
		{Index: 2, From: "A", To: "B", DistanceNM: 32},
		{Index: 3, From: "B", To: "C", DistanceNM: 32},
	}

	all, err := r.ResolveLegs(context.Background(), legs)
	require.NoError(t, err)
	tail, err := r.ResolveFrom(context.Background(), legs[1:], &all[0])
	require.NoError(t, err)

	if diff := cmp.Diff(all[1:], tail); diff != "" {
		t.Errorf("resumed resolution differs (-want +got):\n%s", diff)
	}
}

func TestResolveLegsCancelled(t *testing.T) {
	r, _ := newTestResolver(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := r.ResolveLegs(ctx, []RawLeg{{Index: 1, From: "A", To: "B"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}
