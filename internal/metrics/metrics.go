package metrics

import (
	"net/http" // HTTP handler type
	"strconv"  // Status code labels
	"time"     // Request durations

	"github.com/prometheus/client_golang/prometheus"          // Prometheus client
	"github.com/prometheus/client_golang/prometheus/promhttp" // Exposition handler
)

var (
	// Registry holds the application collectors, served at /metrics
	Registry = prometheus.NewRegistry()

	// Sensor readings by outcome
	levelUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smart_bin",                        // Metric prefix
			Name:      "level_updates_total",              // Full name smart_bin_level_updates_total
			Help:      "Sensor level updates by outcome.", // Shown by the scrape endpoint
		},
		[]string{"result"}, // ok, invalid_level, not_found, error
	)

	// Drops from a critical level to an emptied level
	emptyingEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smart_bin",
			Name:      "emptying_events_total",
			Help:      "Detected drops from a critical level to an emptied level.",
		},
	)

	// Readings appended to history
	criticalReadings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smart_bin",
			Name:      "critical_readings_total",
			Help:      "Readings at or above the critical level recorded in history.",
		},
	)

	// Login attempts
	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smart_bin",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"result"}, // success or failure
	)

	// Requests by route pattern
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smart_bin",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	// Request latency by route pattern
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smart_bin",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path"},
	)
)

// Register the collectors once per process
func init() {
	Registry.MustRegister(
		levelUpdates,                                                      // Sensor readings
		emptyingEvents,                                                    // Emptying detections
		criticalReadings,                                                  // History appends
		logins,                                                            // Login outcomes
		httpRequests,                                                      // Request counts
		httpDuration,                                                      // Request latency
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}), // CPU, memory, file descriptors
		prometheus.NewGoCollector(),                                       // Runtime statistics
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}) // Serve only our registry
}

// RecordLevelUpdate counts one /update request by result ("ok", "invalid_level", "not_found", "error")
func RecordLevelUpdate(result string, emptied, critical bool) {
	levelUpdates.WithLabelValues(result).Inc() // Count the request
	if emptied {
		emptyingEvents.Inc() // Bin was emptied
	}
	if critical {
		criticalReadings.Inc() // Reading went to history
	}
}

// RecordLogin counts one login attempt
func RecordLogin(success bool) {
	result := "failure" // Default outcome
	if success {
		result = "success"
	}
	logins.WithLabelValues(result).Inc() // Count the attempt
}

// ObserveHTTPRequest records a finished request. path should be the route pattern, not the raw URL.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	// Unrouted requests share one label value
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc() // Count the request
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds()) // Record its latency
}
