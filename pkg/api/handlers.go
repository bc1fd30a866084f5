package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"passage_router/pkg/geo"
	"passage_router/pkg/grid"
	"passage_router/pkg/logging"
	"passage_router/pkg/routing"
)

// maxSnapRadius bounds client-supplied snap radii.
const maxSnapRadius = 50

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router     routing.Router
	store      *grid.Store
	snapRadius int
	stats      StatsResponse
	logger     *zap.Logger
}

// NewHandlers creates handlers over a router and the grid store it searches.
func NewHandlers(router routing.Router, store *grid.Store, opts routing.Options, logger *zap.Logger) *Handlers {
	if opts.SnapRadius <= 0 {
		opts.SnapRadius = routing.DefaultSnapRadius
	}
	return &Handlers{
		router:     router,
		store:      store,
		snapRadius: opts.SnapRadius,
		stats: StatsResponse{
			Grid:          store.Stats(),
			SnapRadius:    opts.SnapRadius,
			MaxIterations: opts.MaxIterations,
		},
		logger: logging.OrNop(logger),
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Validate coordinates.
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	result, err := h.router.Route(r.Context(), point(req.Start), point(req.End))
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrSnapFailed):
			writeError(w, http.StatusUnprocessableEntity, "could_not_snap", "")
		case errors.Is(err, routing.ErrSearchLimit):
			writeError(w, http.StatusUnprocessableEntity, "search_limit", "")
		case errors.Is(err, routing.ErrNoRoute):
			writeError(w, http.StatusNotFound, "no_route_found", "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		default:
			h.logger.Error("route failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}

	resp := RouteResponse{
		DistanceNM: result.DistanceNM,
		Frame:      result.Frame,
		Iterations: result.Iterations,
		Waypoints:  make([]LatLngJSON, len(result.Waypoints)),
		Geometry:   geojson.NewGeometry(geo.LineString(result.Waypoints)),
	}
	for i, p := range result.Waypoints {
		resp.Waypoints[i] = LatLngJSON{Lat: p.Lat, Lng: p.Lng}
	}
	writeJSON(w, resp)
}

// HandleSnap handles POST /api/v1/snap.
func (h *Handlers) HandleSnap(w http.ResponseWriter, r *http.Request) {
	var req SnapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.Point); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "point")
		return
	}
	radius := req.Radius
	if radius == 0 {
		radius = h.snapRadius
	}
	if radius < 0 || radius > maxSnapRadius {
		writeError(w, http.StatusBadRequest, "invalid_request", "radius")
		return
	}

	p := point(req.Point)
	snapped, ok := routing.SnapToWater(h.store, p, radius)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "could_not_snap", "")
		return
	}
	writeJSON(w, SnapResponse{
		Point: LatLngJSON{Lat: snapped.Lat, Lng: snapped.Lng},
		Moved: snapped != p,
	})
}

// HandleWater handles GET /api/v1/water?lat=..&lng=..
func (h *Handlers) HandleWater(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "lat")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "lng")
		return
	}
	if err := validateCoord(LatLngJSON{Lat: lat, Lng: lng}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "")
		return
	}

	frame := "global"
	if f := h.store.FrameAt(lat, lng); !f.IsGlobal() {
		frame = f.Name
	}
	writeJSON(w, WaterResponse{Lat: lat, Lng: lng, Water: h.store.IsWater(lat, lng), Frame: frame})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats)
}

// decodeJSON enforces the content type and decodes a small JSON body. It
// writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func point(ll LatLngJSON) geo.GeoPoint {
	return geo.GeoPoint{Lat: ll.Lat, Lng: ll.Lng}
}

func validateCoord(ll LatLngJSON) error {
	return point(ll).Validate()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
