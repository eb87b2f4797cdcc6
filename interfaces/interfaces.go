// Package interfaces defines the contracts between the HTTP layer and the
// services behind it, so handlers and the server can be tested with mocks.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/desprescricao-api/calculator"
)

// Calculator builds tapering schedules.
type Calculator interface {
	// Calculate validates the raw request and generates its schedule
	Calculate(req calculator.Request) (*calculator.Result, error)

	// Protocols describes the protocols that can be requested
	Protocols() []calculator.ProtocolInfo
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()

	// NextRuns returns the next run time of each job, keyed by job name
	NextRuns() map[string]time.Time
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	Home(w http.ResponseWriter, r *http.Request)
	Deprescribe(w http.ResponseWriter, r *http.Request)
	ListProtocols(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker reports service health.
type HealthChecker interface {
	// HealthCheck returns the status string, its details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// InputValidator screens raw query values before they reach the calculator.
type InputValidator interface {
	// ValidateDrugName checks a source or destination drug name
	ValidateDrugName(name string) error

	// ValidateDose checks the raw dose string length and characters
	ValidateDose(raw string) error

	// ValidateProtocolName checks an optional protocol name
	ValidateProtocolName(name string) error
}

// LogCleaner removes expired log files.
type LogCleaner interface {
	CleanupOldLogs() (int, error)
}

// BucketPruner drops idle rate limiter buckets.
type BucketPruner interface {
	PruneBuckets() int
}
