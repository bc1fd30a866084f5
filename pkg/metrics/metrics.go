package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passage",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "passage",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})

	// Grid metrics
	GridLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "passage",
		Subsystem: "grid",
		Name:      "load_duration_seconds",
		Help:      "Duration of loading the global and regional grids",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	// Pathfinder metrics
	PathSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passage",
		Subsystem: "pathfinder",
		Name:      "searches_total",
		Help:      "Total grid A* searches by result",
	}, []string{"result"})

	PathSearchIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "passage",
		Subsystem: "pathfinder",
		Name:      "search_iterations",
		Help:      "Heap pops per A* search",
		Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
	})

	// Disambiguation metrics
	LegsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passage",
		Subsystem: "resolve",
		Name:      "legs_total",
		Help:      "Total legs resolved by overall confidence",
	}, []string{"confidence"})

	EndpointMethods = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passage",
		Subsystem: "resolve",
		Name:      "endpoints_total",
		Help:      "Total resolved endpoints by side and method",
	}, []string{"side", "method"})

	GeocodeCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passage",
		Subsystem: "geocode",
		Name:      "cache_lookups_total",
		Help:      "Geocode cache lookups by outcome",
	}, []string{"outcome"})

	// Synthesis metrics
	RoutesSynthesized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "passage",
		Subsystem: "synth",
		Name:      "routes_total",
		Help:      "Total synthesized routes by geometry source",
	}, []string{"source"})
)

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request count and latency keyed by route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
