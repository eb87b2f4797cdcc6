// Package health reports whether the API can serve calculations.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/desprescricao-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	calculator interfaces.Calculator
	scheduler  interfaces.Scheduler
	startTime  time.Time
	now        func() time.Time
}

// NewHealthChecker creates a health checker. scheduler may be nil when no
// maintenance jobs run.
func NewHealthChecker(calculator interfaces.Calculator, scheduler interfaces.Scheduler) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		calculator: calculator,
		scheduler:  scheduler,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// HealthCheck is unhealthy without protocols and degraded when the
// maintenance scheduler has nothing planned. Calculations still work while
// degraded, so it answers 200.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	protocols := h.calculator.Protocols()

	names := make([]string, 0, len(protocols))
	defaultProtocol := ""
	for _, p := range protocols {
		names = append(names, p.Name)
		if p.Default {
			defaultProtocol = p.Name
		}
	}

	nextRuns := map[string]string{}
	if h.scheduler != nil {
		for job, at := range h.scheduler.NextRuns() {
			nextRuns[job] = at.Format(time.RFC3339)
		}
	}

	switch {
	case len(protocols) == 0 || defaultProtocol == "":
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case h.scheduler != nil && len(nextRuns) == 0:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	uptime := h.now().Sub(h.startTime)

	data = map[string]any{
		"started_at":       h.startTime.Format(time.RFC3339),
		"uptime_hours":     math.Round(uptime.Hours()*10) / 10,
		"protocols":        names,
		"default_protocol": defaultProtocol,
		"next_maintenance": nextRuns,
	}

	return status, data, httpStatus
}
