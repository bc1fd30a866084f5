package resolve

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"passage_router/pkg/geo"
	"passage_router/pkg/logging"
	"passage_router/pkg/metrics"
)

// Resolver turns logged legs into coordinates, one leg at a time, using the
// previous leg's destination as context.
type Resolver struct {
	lookup    Lookup
	th        Thresholds
	centroids Centroids
	logger    *zap.Logger
}

// NewResolver creates a resolver. A nil centroid table uses the built-in one
// and thresholds that are zero, negative or NaN take their defaults.
func NewResolver(lookup Lookup, th Thresholds, centroids Centroids, logger *zap.Logger) *Resolver {
	if centroids == nil {
		centroids = DefaultCentroids()
	}
	th = th.withDefaults()
	return &Resolver{
		lookup:    lookup,
		th:        th,
		centroids: centroids,
		logger:    logging.OrNop(logger),
	}
}

// ResolveLegs resolves legs in order from the start of a journey.
func (r *Resolver) ResolveLegs(ctx context.Context, legs []RawLeg) ([]ResolvedLeg, error) {
	return r.ResolveFrom(ctx, legs, nil)
}

// ResolveFrom resolves legs in order, continuing after prev. prev may be nil.
// On cancellation the legs resolved so far are returned with the error.
func (r *Resolver) ResolveFrom(ctx context.Context, legs []RawLeg, prev *ResolvedLeg) ([]ResolvedLeg, error) {
	out := make([]ResolvedLeg, 0, len(legs))
	for _, leg := range legs {
		rl, err := r.ResolveLeg(ctx, leg, prev)
		if err != nil {
			return out, err
		}
		out = append(out, rl)
		prev = &out[len(out)-1]
	}
	return out, nil
}

// ResolveLeg resolves one leg given the previously resolved leg, or nil for
// the first leg of a journey. The result depends only on the leg, its
// candidates and prev.
func (r *Resolver) ResolveLeg(ctx context.Context, leg RawLeg, prev *ResolvedLeg) (ResolvedLeg, error) {
	var fromCands, toCands []Candidate
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fromCands = r.candidates(ctx, leg.From, leg.Country)
	}()
	go func() {
		defer wg.Done()
		toCands = r.candidates(ctx, leg.To, leg.Country)
	}()
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return ResolvedLeg{}, err
	}

	from := r.resolveFrom(fromCands, leg, prev)
	to := r.resolveTo(toCands, leg, from.Point)
	rl := newResolvedLeg(leg, from, to)

	metrics.LegsResolved.WithLabelValues(rl.Overall.String()).Inc()
	metrics.EndpointMethods.WithLabelValues("from", string(from.Method)).Inc()
	metrics.EndpointMethods.WithLabelValues("to", string(to.Method)).Inc()

	fields := []zap.Field{
		zap.Int("leg", leg.Index),
		zap.String("from", leg.From),
		zap.String("from_method", string(from.Method)),
		zap.String("to", leg.To),
		zap.String("to_method", string(to.Method)),
		zap.Stringer("confidence", rl.Overall),
	}
	if rl.Overall == Red {
		r.logger.Warn("leg resolved with fallback coordinates", fields...)
	} else {
		r.logger.Debug("leg resolved", fields...)
	}
	return rl, nil
}

// candidates returns the geocoding matches for a place. Lookup failures
// count as no matches.
func (r *Resolver) candidates(ctx context.Context, place, country string) []Candidate {
	if place == "" || r.lookup == nil {
		return nil
	}
	cands, err := r.lookup.Lookup(ctx, place, country)
	if err != nil {
		r.logger.Warn("geocode lookup failed",
			zap.String("place", place),
			zap.String("country", country),
			zap.Error(err))
		return nil
	}
	return cands
}

func (r *Resolver) resolveFrom(cands []Candidate, leg RawLeg, prev *ResolvedLeg) Endpoint {
	if len(cands) == 0 {
		return r.fromFallback(leg, prev)
	}
	if prev == nil {
		return r.pick(cands, nil, r.th.ContinuityBudgetNM)
	}

	ref := prev.To.Point
	ep := r.pick(cands, &ref, r.th.ContinuityBudgetNM)
	if geo.HaversineNM(ep.Point, ref) > r.th.InheritThresholdNM {
		return Endpoint{
			Point:       ref,
			Confidence:  Yellow,
			Method:      MethodInherited,
			DisplayName: prev.To.DisplayName,
		}
	}
	return ep
}

func (r *Resolver) resolveTo(cands []Candidate, leg RawLeg, from geo.GeoPoint) Endpoint {
	if len(cands) == 0 {
		return r.toFallback(leg, from)
	}
	return r.pick(cands, &from, leg.DistanceNM)
}

// scored is a candidate with its crow-flies distance from the reference.
type scored struct {
	cand Candidate
	crow float64
}

// pick selects one candidate from a non-empty list, measuring each against
// ref with the sailing distance budget.
func (r *Resolver) pick(cands []Candidate, ref *geo.GeoPoint, budget float64) Endpoint {
	// A sole match is accepted whatever its distance.
	if len(cands) == 1 {
		return endpointFor(cands[0], Green, MethodSingle)
	}
	if ref == nil || budget <= 0 {
		best := cands[0]
		for _, c := range cands[1:] {
			if c.Importance > best.Importance {
				best = c
			}
		}
		return endpointFor(best, Yellow, MethodImportance)
	}

	limit := r.th.DistanceTolerance * budget
	var survivors []scored
	closest, closestGap := cands[0], math.Inf(1)
	for _, c := range cands {
		crow := geo.HaversineNM(*ref, c.Point())
		if gap := math.Abs(crow - budget); gap < closestGap {
			closest, closestGap = c, gap
		}
		if crow <= limit {
			survivors = append(survivors, scored{cand: c, crow: crow})
		}
	}

	switch len(survivors) {
	case 0:
		return endpointFor(closest, Yellow, MethodClosest)
	case 1:
		return endpointFor(survivors[0].cand, Green, MethodFiltered)
	}

	// Prefer the candidate that uses most of the budget without exceeding it.
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].crow/budget > survivors[j].crow/budget
	})
	conf := Green
	if survivors[0].crow-survivors[1].crow < r.th.AmbiguityGapNM {
		conf = Yellow
	}
	return endpointFor(survivors[0].cand, conf, MethodRanked)
}

func endpointFor(c Candidate, conf Confidence, m Method) Endpoint {
	return Endpoint{Point: c.Point(), Confidence: conf, Method: m, DisplayName: c.DisplayName}
}

// fromFallback places an unmatched origin at the previous destination, the
// country centroid, or (0, 0), in that order.
func (r *Resolver) fromFallback(leg RawLeg, prev *ResolvedLeg) Endpoint {
	if prev != nil {
		return Endpoint{Point: prev.To.Point, Confidence: Red, Method: MethodPreviousLeg, DisplayName: prev.To.DisplayName}
	}
	if c, ok := r.centroids.Lookup(leg.Country); ok {
		return Endpoint{Point: c, Confidence: Red, Method: MethodCentroid, DisplayName: leg.Country}
	}
	return Endpoint{Confidence: Red, Method: MethodUnknown}
}

// toFallback estimates an unmatched destination. With a known centroid and
// logged distance it projects from the origin toward the centroid, never
// past it.
func (r *Resolver) toFallback(leg RawLeg, from geo.GeoPoint) Endpoint {
	c, ok := r.centroids.Lookup(leg.Country)
	if !ok {
		return Endpoint{Point: from, Confidence: Red, Method: MethodUnknown}
	}
	if leg.DistanceNM <= 0 {
		return Endpoint{Point: c, Confidence: Red, Method: MethodCentroid, DisplayName: leg.Country}
	}
	dist := math.Min(leg.DistanceNM, geo.HaversineNM(from, c))
	return Endpoint{
		Point:      geo.Destination(from, geo.Bearing(from, c), dist),
		Confidence: Red,
		Method:     MethodProjected,
	}
}
