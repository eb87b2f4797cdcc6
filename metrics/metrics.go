// Package metrics provides the Prometheus collectors for the API.
//
// HTTP traffic:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Calculations:
//   - taper_schedules_generated_total: Counter with protocol and destination labels
//   - taper_calculation_errors_total: Counter with kind label
//   - taper_schedule_weeks: Histogram of schedule lengths per protocol
//
// All collectors are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (client IPs currently tracked)",
		},
	)

	SchedulesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taper_schedules_generated_total",
			Help: "Tapering schedules generated",
		},
		[]string{"protocol", "destination"},
	)

	CalculationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taper_calculation_errors_total",
			Help: "Rejected or failed calculations by error kind",
		},
		[]string{"kind"},
	)

	ScheduleWeeks = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taper_schedule_weeks",
			Help:    "Number of weeks in generated schedules",
			Buckets: []float64{4, 8, 13, 26, 39, 52, 104, 260, 520},
		},
		[]string{"protocol"},
	)

	MaintenanceRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_job_runs_total",
			Help: "Scheduled maintenance job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(SchedulesGenerated)
	prometheus.MustRegister(CalculationErrors)
	prometheus.MustRegister(ScheduleWeeks)
	prometheus.MustRegister(MaintenanceRuns)
}

// ObserveSchedule records a generated schedule
func ObserveSchedule(protocol, destination string, weeks int) {
	SchedulesGenerated.WithLabelValues(protocol, destination).Inc()
	ScheduleWeeks.WithLabelValues(protocol).Observe(float64(weeks))
}

// ObserveCalculationError records a failed calculation
func ObserveCalculationError(kind string) {
	CalculationErrors.WithLabelValues(kind).Inc()
}
