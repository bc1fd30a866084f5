package api

import (
	"github.com/paulmach/orb/geojson"

	"passage_router/pkg/grid"
)

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start LatLngJSON `json:"start"`
	End   LatLngJSON `json:"end"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	DistanceNM float64           `json:"distance_nm"`
	Frame      string            `json:"frame"`
	Iterations int               `json:"iterations"`
	Waypoints  []LatLngJSON      `json:"waypoints"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

// SnapRequest is the JSON body for POST /api/v1/snap.
type SnapRequest struct {
	Point  LatLngJSON `json:"point"`
	Radius int        `json:"radius,omitempty"` // cells; 0 uses the server default
}

// SnapResponse is the JSON response for a successful snap.
type SnapResponse struct {
	Point LatLngJSON `json:"point"`
	Moved bool       `json:"moved"`
}

// WaterResponse is the JSON response for GET /api/v1/water.
type WaterResponse struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Water bool    `json:"water"`
	Frame string  `json:"frame"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Grid          grid.Stats `json:"grid"`
	SnapRadius    int        `json:"snap_radius"`
	MaxIterations int        `json:"max_iterations"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
