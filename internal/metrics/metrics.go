package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Solves counts optimizer runs by outcome (converged, timed_out, or a failure kind)
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_solves_total", Help: "Route optimizer runs by outcome."},
		[]string{"outcome"},
	)
	// SolveDuration tracks wall time spent in the optimizer
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_solve_duration_seconds", Help: "Route optimizer wall time in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}},
	)
	// RouteDistance records the distance of returned routes in km
	RouteDistance = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_distance_km", Help: "Total distance of optimized routes in km.", Buckets: []float64{5, 10, 25, 50, 100, 200, 400}},
	)

	// MatrixRequests counts matrix provider calls by source and status
	MatrixRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matrix_requests_total", Help: "Distance/time matrix requests by source and status."},
		[]string{"source", "status"},
	)
	// MatrixCache counts matrix cache lookups by result (hit, miss, error)
	MatrixCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matrix_cache_lookups_total", Help: "Matrix cache lookups by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Solves)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(RouteDistance)
		Registry.MustRegister(MatrixRequests)
		Registry.MustRegister(MatrixCache)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
