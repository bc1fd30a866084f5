package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"passage_router/pkg/config"
	"passage_router/pkg/geocode"
	"passage_router/pkg/logging"
	"passage_router/pkg/publish"
	"passage_router/pkg/records"
	"passage_router/pkg/resolve"
	"passage_router/pkg/searoute"
	"passage_router/pkg/synth"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default: ./config.yaml if present)")
	legsPath := flag.String("legs", "", "Path to raw legs JSON")
	resumePath := flag.String("resume", "", "Leg records from a previous run; resolved legs are kept")
	flag.Parse()

	if *legsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: migrate --legs <legs.json> [--config config.yaml] [--resume legs.out.json]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *legsPath, *resumePath, logger); err != nil {
		logger.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, legsPath, resumePath string, logger *zap.Logger) error {
	start := time.Now()

	// Step 1: Read legs and any previous results.
	raw, err := readFile(legsPath, records.ReadLegs)
	if err != nil {
		return err
	}
	var saved []records.LegRecord
	if resumePath != "" {
		if saved, err = readFile(resumePath, records.ReadLegRecords); err != nil {
			return err
		}
	}
	progress, err := records.Resume(raw, saved)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	logger.Info("legs loaded",
		zap.Int("legs", len(raw)),
		zap.Int("already_resolved", len(progress.Done)),
		zap.Int("pending", len(progress.Pending)))

	// Step 2: Build the geocoder.
	lookup, closeLookup, err := buildLookup(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLookup()

	centroids := resolve.DefaultCentroids()
	if cfg.Resolve.CentroidsPath != "" {
		if centroids, err = readFile(cfg.Resolve.CentroidsPath, resolve.LoadCentroids); err != nil {
			return err
		}
	}

	// Step 3: Resolve pending legs.
	resolver := resolve.NewResolver(lookup, cfg.Resolve.Thresholds, centroids, logger)
	fresh, err := resolver.ResolveFrom(ctx, progress.Pending, progress.Prev)
	if err != nil {
		return fmt.Errorf("resolve legs (%d done): %w", len(fresh), err)
	}
	legs := progress.Merge(fresh)

	// Step 4: Synthesize routes.
	var router synth.ExternalRouter
	if cfg.Synth.SearouteURL != "" {
		router = searoute.NewClient(cfg.Synth.SearouteURL, cfg.Synth.SearouteAPIKey, nil)
	} else {
		logger.Warn("no sea-route service configured; every route is a straight line")
	}
	synthesizer := synth.NewSynthesizer(router, cfg.SynthOptions(), logger)
	routes, summary, err := synthesizer.SynthesizeAll(ctx, legs)
	if err != nil {
		return fmt.Errorf("synthesize routes: %w", err)
	}

	// Step 5: Publish records.
	pub, err := buildPublisher(cfg)
	if err != nil {
		return err
	}
	defer pub.Close()

	legRecs := make([]records.LegRecord, len(legs))
	for i, rl := range legs {
		legRecs[i] = records.FromResolvedLeg(rl)
	}
	routeRecs := make([]records.RouteRecord, len(routes))
	for i, rr := range routes {
		routeRecs[i] = records.FromRoute(rr)
	}
	if err := pub.PublishLegs(ctx, legRecs); err != nil {
		return fmt.Errorf("publish legs: %w", err)
	}
	if err := pub.PublishRoutes(ctx, routeRecs); err != nil {
		return fmt.Errorf("publish routes: %w", err)
	}

	counts := make(map[resolve.Confidence]int)
	for _, rl := range legs {
		counts[rl.Overall]++
	}
	logger.Info("migration complete",
		zap.Int("legs", len(legs)),
		zap.Int("green", counts[resolve.Green]),
		zap.Int("yellow", counts[resolve.Yellow]),
		zap.Int("red", counts[resolve.Red]),
		zap.Int("fallback_routes", summary.Fallbacks),
		zap.Float64("median_ratio", summary.MedianRatio),
		zap.Ints("ratio_outliers", summary.Outliers),
		zap.Duration("took", time.Since(start).Round(time.Millisecond)))
	return nil
}

// buildLookup loads the gazetteer and wraps it in the valkey cache when one
// is configured. The returned func releases the cache connection.
func buildLookup(cfg *config.Config, logger *zap.Logger) (resolve.Lookup, func(), error) {
	places, err := readFile(cfg.Geocode.Gazetteer, geocode.ReadPlaces)
	if err != nil {
		return nil, nil, err
	}
	gaz := geocode.NewGazetteer(places)
	gaz.SetLimit(cfg.Geocode.Limit)
	logger.Info("gazetteer loaded", zap.Int("places", gaz.Len()))

	if cfg.Geocode.ValkeyAddr == "" {
		return gaz, func() {}, nil
	}
	store, err := geocode.NewValkeyStore(cfg.Geocode.ValkeyAddr)
	if err != nil {
		return nil, nil, err
	}
	return geocode.NewCachedLookup(gaz, store, cfg.Geocode.CacheTTL, logger), store.Close, nil
}

func buildPublisher(cfg *config.Config) (publish.Publisher, error) {
	sink := publish.FileSink{LegsPath: cfg.Output.Legs, RoutesPath: cfg.Output.Routes}
	if !cfg.NATS.Enabled {
		return sink, nil
	}
	np, err := publish.NewNATSPublisher(cfg.NATS.URL)
	if err != nil {
		return nil, err
	}
	return publish.Tee{sink, np}, nil
}

func readFile[T any](path string, decode func(r io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	v, err := decode(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
