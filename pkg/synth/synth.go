// Package synth builds route geometry for resolved legs, preferring an
// external sea-route source and falling back to a straight line.
package synth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"passage_router/pkg/geo"
	"passage_router/pkg/logging"
	"passage_router/pkg/metrics"
	"passage_router/pkg/resolve"
)

// ExternalRouter produces a water-following line between two points.
type ExternalRouter interface {
	Route(ctx context.Context, from, to geo.GeoPoint) (orb.LineString, error)
}

// RouteRecord is the synthesized geometry of one leg.
type RouteRecord struct {
	LegIndex           int
	From               string
	To                 string
	Geometry           orb.LineString
	LoggedDistanceNM   float64
	ComputedDistanceNM *float64 // nil when the straight-line fallback was used
	DistanceRatio      *float64 // computed / logged; nil without both
	UsedFallback       bool
	Confidence         resolve.Confidence
}

// Options tune synthesis.
type Options struct {
	RatioMin float64       // ratios below are reported as outliers
	RatioMax float64       // ratios above are reported as outliers
	Timeout  time.Duration // per-leg external router timeout; 0 disables
}

// DefaultOptions returns the standard synthesis settings.
func DefaultOptions() Options {
	return Options{RatioMin: 0.5, RatioMax: 2.0, Timeout: 30 * time.Second}
}

// Synthesizer turns resolved legs into route records.
type Synthesizer struct {
	router ExternalRouter
	opts   Options
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer. A nil router always falls back.
func NewSynthesizer(router ExternalRouter, opts Options, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{router: router, opts: opts, logger: logging.OrNop(logger)}
}

var errDegenerate = errors.New("degenerate endpoints")

// Synthesize builds the route record for one leg. External router failures
// are logged and produce the straight-line fallback; they are never
// returned.
func (s *Synthesizer) Synthesize(ctx context.Context, leg resolve.ResolvedLeg) RouteRecord {
	from, to := leg.From.Point, leg.To.Point
	rec := RouteRecord{
		LegIndex:         leg.Leg.Index,
		From:             leg.Leg.From,
		To:               leg.Leg.To,
		LoggedDistanceNM: leg.Leg.DistanceNM,
		Confidence:       leg.Overall,
	}

	line, err := s.external(ctx, from, to)
	if err != nil {
		s.logger.Warn("using straight-line route",
			zap.Int("leg", leg.Leg.Index),
			zap.String("from", leg.Leg.From),
			zap.String("to", leg.Leg.To),
			zap.Error(err))
		metrics.RoutesSynthesized.WithLabelValues("fallback").Inc()
		rec.Geometry = orb.LineString{from.Orb(), to.Orb()}
		rec.UsedFallback = true
		return rec
	}

	metrics.RoutesSynthesized.WithLabelValues("external").Inc()
	computed := geo.LengthNM(geo.FromLineString(line))
	rec.Geometry = line
	rec.ComputedDistanceNM = &computed
	if rec.LoggedDistanceNM > 0 {
		ratio := computed / rec.LoggedDistanceNM
		rec.DistanceRatio = &ratio
	}
	return rec
}

// external asks the router for a line, converting panics and unusable
// geometry into errors.
func (s *Synthesizer) external(ctx context.Context, from, to geo.GeoPoint) (line orb.LineString, err error) {
	if from.Validate() != nil || to.Validate() != nil || from == to {
		return nil, errDegenerate
	}
	if s.router == nil {
		return nil, errors.New("no external router configured")
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			line, err = nil, fmt.Errorf("external router panic: %v", r)
		}
	}()
	line, err = s.router.Route(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("external router: %w", err)
	}
	if len(line) < 2 {
		return nil, fmt.Errorf("external router returned %d points", len(line))
	}
	for _, p := range line {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			return nil, errors.New("external router returned non-finite coordinates")
		}
	}
	return line, nil
}

// SynthesizeAll builds records for every leg in order and summarizes the
// distance ratios. It stops early only when ctx is done.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, legs []resolve.ResolvedLeg) ([]RouteRecord, Summary, error) {
	recs := make([]RouteRecord, 0, len(legs))
	for _, leg := range legs {
		if err := ctx.Err(); err != nil {
			return recs, Summarize(recs, s.opts), err
		}
		recs = append(recs, s.Synthesize(ctx, leg))
	}
	sum := Summarize(recs, s.opts)
	s.logger.Info("routes synthesized",
		zap.Int("legs", sum.Legs),
		zap.Int("fallbacks", sum.Fallbacks),
		zap.Float64("median_ratio", sum.MedianRatio),
		zap.Int("outliers", len(sum.Outliers)))
	return recs, sum, nil
}
