package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Custom histogram buckets optimized for API response times ranging from
	// milliseconds to 30+ seconds. Salesforce describe calls can be slow, so the
	// upper buckets matter.
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55}

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// CRM Client Metrics (Salesforce)
	SalesforceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_client_operation_duration_seconds",
			Help:    "Salesforce client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	SalesforceRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_client_operation_total",
			Help: "Total number of Salesforce client operations",
		},
		[]string{"operation", "status"},
	)

	// Schema discovery cache metrics
	SchemaCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_cache_hits_total",
			Help: "Total number of schema describe cache hits",
		},
		[]string{"cache_name"},
	)

	SchemaCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_cache_misses_total",
			Help: "Total number of schema describe cache misses",
		},
		[]string{"cache_name"},
	)

	// Business Metrics
	MeetingLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_meeting_lookups_total",
			Help: "Total number of class meeting lookups by resolution path",
		},
		[]string{"via", "status"}, // via: meetingId, exact, discovered
	)

	ReconcileItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_reconcile_items_total",
			Help: "Total number of reconciled update items",
		},
		[]string{"category", "outcome"}, // category: attendance, supervision
	)

	ContactNameLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_contact_name_lookup_chunks_total",
			Help: "Total number of contact name lookup chunks",
		},
		[]string{"status"},
	)

	EmailSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_class_add_emails_total",
			Help: "Total number of class add request emails",
		},
		[]string{"status"},
	)

	// Infrastructure Metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// RecordInfrastructureMetrics collects infrastructure metrics periodically
func RecordInfrastructureMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			GoRoutines.Set(float64(runtime.NumGoroutine()))
			HeapAlloc.Set(float64(m.HeapAlloc))
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
