package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"passage_router/pkg/geo"
	"passage_router/pkg/grid"
	"passage_router/pkg/logging"
	"passage_router/pkg/metrics"
)

var (
	// ErrNoRoute is returned when no water path exists between the two points.
	ErrNoRoute = errors.New("no route found")

	// ErrSnapFailed is returned when an endpoint has no water within the
	// snap radius.
	ErrSnapFailed = fmt.Errorf("could not snap to water: %w", ErrNoRoute)

	// ErrSearchLimit is returned when the search exceeds its iteration cap.
	ErrSearchLimit = fmt.Errorf("search iteration limit reached: %w", ErrNoRoute)
)

// DefaultMaxIterations caps A* expansions when no other limit is given.
const DefaultMaxIterations = 2_000_000

// Options tune the pathfinder.
type Options struct {
	SnapRadius     int     // ring radius in cells
	MaxIterations  int     // default expansion cap
	SimplifyFactor float64 // simplification tolerance in cells
	ComponentCheck bool    // reject disconnected water bodies before searching
}

// DefaultOptions returns the standard pathfinder settings.
func DefaultOptions() Options {
	return Options{
		SnapRadius:     DefaultSnapRadius,
		MaxIterations:  DefaultMaxIterations,
		SimplifyFactor: 1.5,
	}
}

// Result is the output of a route query.
type Result struct {
	Waypoints  []geo.GeoPoint
	DistanceNM float64
	Frame      string // region name, or "global"
	Iterations int
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, from, to geo.GeoPoint) (*Result, error)
}

// Pathfinder finds water-only routes on a grid store.
type Pathfinder struct {
	store  *grid.Store
	opts   Options
	logger *zap.Logger

	mu         sync.Mutex
	components map[int]*grid.Components // by frame index
}

// NewPathfinder creates a pathfinder. Zero option fields take their defaults.
func NewPathfinder(store *grid.Store, opts Options, logger *zap.Logger) *Pathfinder {
	def := DefaultOptions()
	if opts.SnapRadius <= 0 {
		opts.SnapRadius = def.SnapRadius
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.SimplifyFactor <= 0 {
		opts.SimplifyFactor = def.SimplifyFactor
	}
	return &Pathfinder{
		store:      store,
		opts:       opts,
		logger:     logging.OrNop(logger),
		components: make(map[int]*grid.Components),
	}
}

// Store returns the grid store the pathfinder searches.
func (p *Pathfinder) Store() *grid.Store { return p.store }

// FindRoute returns simplified waypoints of a water path from one point to
// another. maxIterations <= 0 uses the configured cap.
func (p *Pathfinder) FindRoute(ctx context.Context, from, to geo.GeoPoint, maxIterations int) ([]geo.GeoPoint, error) {
	res, err := p.find(ctx, from, to, maxIterations)
	if err != nil {
		return nil, err
	}
	return res.Waypoints, nil
}

// Route implements Router with the configured iteration cap.
func (p *Pathfinder) Route(ctx context.Context, from, to geo.GeoPoint) (*Result, error) {
	return p.find(ctx, from, to, 0)
}

func (p *Pathfinder) find(ctx context.Context, from, to geo.GeoPoint, maxIterations int) (*Result, error) {
	if maxIterations <= 0 {
		maxIterations = p.opts.MaxIterations
	}
	start := time.Now()

	res, err := p.search(ctx, from, to, maxIterations)
	outcome := "ok"
	switch {
	case errors.Is(err, ErrSnapFailed):
		outcome = "snap_failed"
	case errors.Is(err, ErrSearchLimit):
		outcome = "search_limit"
	case errors.Is(err, ErrNoRoute):
		outcome = "no_route"
	case err != nil:
		outcome = "error"
	}
	metrics.PathSearches.WithLabelValues(outcome).Inc()
	if res != nil {
		metrics.PathSearchIterations.Observe(float64(res.Iterations))
	}

	if err != nil {
		p.logger.Debug("route search failed",
			zap.String("outcome", outcome),
			zap.Float64("from_lat", from.Lat), zap.Float64("from_lng", from.Lng),
			zap.Float64("to_lat", to.Lat), zap.Float64("to_lng", to.Lng),
			zap.Error(err))
		return nil, err
	}
	p.logger.Debug("route found",
		zap.String("frame", res.Frame),
		zap.Int("iterations", res.Iterations),
		zap.Int("waypoints", len(res.Waypoints)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (p *Pathfinder) search(ctx context.Context, from, to geo.GeoPoint, maxIterations int) (*Result, error) {
	// Step 1: Snap both endpoints to water.
	fromSnap, ok := SnapToWater(p.store, from, p.opts.SnapRadius)
	if !ok {
		return nil, fmt.Errorf("origin (%g, %g): %w", from.Lat, from.Lng, ErrSnapFailed)
	}
	toSnap, ok := SnapToWater(p.store, to, p.opts.SnapRadius)
	if !ok {
		return nil, fmt.Errorf("destination (%g, %g): %w", to.Lat, to.Lng, ErrSnapFailed)
	}

	// Step 2: Pick the frame and locate both cells inside it.
	f := p.frameFor(fromSnap, toSnap)
	sr, sc, ok := snapInFrame(f, fromSnap, p.opts.SnapRadius)
	if !ok {
		return nil, fmt.Errorf("origin (%g, %g) in %s: %w", from.Lat, from.Lng, frameName(f), ErrSnapFailed)
	}
	if fr, fc := f.Cell(fromSnap.Lat, fromSnap.Lng); fr != sr || fc != sc {
		fromSnap = f.Center(sr, sc)
	}
	gr, gc, ok := snapInFrame(f, toSnap, p.opts.SnapRadius)
	if !ok {
		return nil, fmt.Errorf("destination (%g, %g) in %s: %w", to.Lat, to.Lng, frameName(f), ErrSnapFailed)
	}
	if tr, tc := f.Cell(toSnap.Lat, toSnap.Lng); tr != gr || tc != gc {
		toSnap = f.Center(gr, gc)
	}

	res := &Result{Frame: frameName(f)}
	if sr == gr && sc == gc {
		res.Waypoints = []geo.GeoPoint{fromSnap, toSnap}
		res.DistanceNM = geo.LengthNM(res.Waypoints)
		return res, nil
	}

	// Step 3: Reject disconnected water bodies without searching.
	if p.opts.ComponentCheck && !p.componentsFor(f).Connected(f.Key(sr, sc), f.Key(gr, gc)) {
		return res, fmt.Errorf("%s: endpoints in separate water bodies: %w", frameName(f), ErrNoRoute)
	}

	// Step 4: A* over the frame's cells.
	cells, iterations, err := astar(ctx, f, [2]int{sr, sc}, [2]int{gr, gc}, maxIterations)
	res.Iterations = iterations
	if err != nil {
		return res, err
	}

	// Step 5: Cell centers, anchored at the snapped endpoints, then simplify.
	raw := make([]geo.GeoPoint, len(cells))
	for i, key := range cells {
		raw[i] = f.Center(key/f.Cols, key%f.Cols)
	}
	raw[0] = fromSnap
	raw[len(raw)-1] = toSnap

	res.Waypoints = Simplify(raw, p.opts.SimplifyFactor*f.Resolution)
	res.DistanceNM = geo.LengthNM(res.Waypoints)
	return res, nil
}

// frameFor uses a region when both points lie in the same one, else the
// global grid.
func (p *Pathfinder) frameFor(a, b geo.GeoPoint) grid.Frame {
	ra := p.store.RegionAt(a.Lat, a.Lng)
	if ra >= 0 && ra == p.store.RegionAt(b.Lat, b.Lng) {
		return p.store.Regional().Frame(ra)
	}
	return p.store.Global().Frame()
}

func (p *Pathfinder) componentsFor(f grid.Frame) *grid.Components {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.components[f.Index]
	if !ok {
		c = grid.LabelWater(f.Bitmap)
		p.components[f.Index] = c
		p.logger.Info("labelled water components",
			zap.String("frame", frameName(f)),
			zap.Int("components", c.Count()))
	}
	return c
}

func frameName(f grid.Frame) string {
	if f.IsGlobal() {
		return "global"
	}
	return f.Name
}
