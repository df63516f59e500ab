package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry served at /metrics.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Plans counts planning calls by result (ok, error, cancelled).
	Plans = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_plans_total", Help: "Planning calls by result."},
		[]string{"result"},
	)
	PlanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "planner_plan_duration_seconds", Help: "Planning call duration in seconds.", Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5}},
	)
	// Deliveries counts delivery marks by result (delivered, failed, already_delivered, rejected).
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_deliveries_total", Help: "Delivery marks by result."},
		[]string{"result"},
	)
	// Scans counts separator lookups by result (hit, duplicate, not_found).
	Scans = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_scans_total", Help: "Barcode scans by result."},
		[]string{"result"},
	)
	// GeocodeLookups counts address resolutions by source (cache, provider) and result.
	GeocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_geocode_lookups_total", Help: "Geocode lookups by source and result."},
		[]string{"source", "result"},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(Plans, PlanDuration, Deliveries, Scans, GeocodeLookups)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
