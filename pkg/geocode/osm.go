package geocode

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"passage_router/pkg/logging"
)

// placeImportance ranks the kinds of node kept in the gazetteer.
var placeImportance = map[string]float64{
	"city":     0.9,
	"town":     0.7,
	"island":   0.6,
	"village":  0.5,
	"harbour":  0.55,
	"marina":   0.5,
	"suburb":   0.4,
	"hamlet":   0.3,
	"islet":    0.3,
	"locality": 0.2,
}

// placeKind returns the gazetteer kind of a node, or "" to skip it.
func placeKind(tags osm.Tags) string {
	if p := tags.Find("place"); p != "" {
		if _, ok := placeImportance[p]; ok {
			return p
		}
	}
	if tags.Find("harbour") == "yes" || tags.Find("seamark:type") == "harbour" {
		return "harbour"
	}
	if tags.Find("leisure") == "marina" {
		return "marina"
	}
	return ""
}

// importance combines the kind rank with a small population bonus.
func importance(kind string, tags osm.Tags) float64 {
	imp := placeImportance[kind]
	if pop, err := strconv.ParseFloat(strings.ReplaceAll(tags.Find("population"), ",", ""), 64); err == nil && pop > 1 {
		imp += math.Min(0.09, math.Log10(pop)/100)
	}
	return imp
}

// altNames collects the English, alternative and historical names of a node.
func altNames(tags osm.Tags) []string {
	var names []string
	for _, key := range []string{"name:en", "alt_name", "old_name", "official_name", "loc_name"} {
		for _, n := range strings.Split(tags.Find(key), ";") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	return names
}

func countryOf(tags osm.Tags) string {
	for _, key := range []string{"is_in:country_code", "addr:country", "is_in:country"} {
		if v := tags.Find(key); v != "" {
			return v
		}
	}
	return ""
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only places inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures ParseOSM.
type ParseOptions struct {
	BBox    BBox   // if non-zero, filter places to this bounding box
	Country string // default country for untagged places
	Logger  *zap.Logger
}

// ParseOSM extracts named places, harbours and marinas from an OSM PBF
// stream. Only nodes are read.
func ParseOSM(ctx context.Context, r io.Reader, opts ParseOptions) ([]Place, error) {
	logger := logging.OrNop(opts.Logger)
	useBBox := !opts.BBox.IsZero()

	scanner := osmpbf.New(ctx, r, 1)
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	var (
		places       []Place
		nodes        int
		bboxFiltered int
	)
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		nodes++

		name := n.Tags.Find("name")
		if name == "" {
			continue
		}
		kind := placeKind(n.Tags)
		if kind == "" {
			continue
		}
		if useBBox && !opts.BBox.Contains(n.Lat, n.Lon) {
			bboxFiltered++
			continue
		}

		country := countryOf(n.Tags)
		if country == "" {
			country = opts.Country
		}
		places = append(places, Place{
			Name:       name,
			AltNames:   altNames(n.Tags),
			Country:    country,
			Kind:       kind,
			Lat:        n.Lat,
			Lng:        n.Lon,
			Importance: importance(kind, n.Tags),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}

	logger.Info("osm places extracted",
		zap.Int("nodes", nodes),
		zap.Int("places", len(places)),
		zap.Int("bbox_filtered", bboxFiltered))
	return places, nil
}
