// Package scheduler runs the periodic maintenance jobs: log retention
// cleanup and rate limiter bucket pruning.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/giygas/desprescricao-api/interfaces"
	"github.com/giygas/desprescricao-api/logging"
	"github.com/giygas/desprescricao-api/metrics"
	"github.com/go-co-op/gocron"
)

// Job names, also used as gocron tags
const (
	JobLogCleanup   = "log_cleanup"
	JobBucketPruner = "rate_limiter_prune"
)

const (
	logCleanupAt        = "03:00"
	bucketPruneInterval = 30 * time.Minute
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler owns a gocron scheduler and the jobs it runs
type Scheduler struct {
	logs      interfaces.LogCleaner
	buckets   interfaces.BucketPruner
	scheduler *gocron.Scheduler

	mu      sync.Mutex
	started bool
}

// NewScheduler creates a scheduler. A nil dependency skips its job.
func NewScheduler(logs interfaces.LogCleaner, buckets interfaces.BucketPruner) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.TagsUnique()
	s.SingletonModeAll()

	return &Scheduler{
		logs:      logs,
		buckets:   buckets,
		scheduler: s,
	}
}

// Start registers the jobs and starts the scheduler in the background
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logs != nil {
		_, err := s.scheduler.Every(1).Day().At(logCleanupAt).Tag(JobLogCleanup).Do(s.cleanupLogs)
		if err != nil {
			logging.Error("Failed to schedule log cleanup", "error", err)
			return fmt.Errorf("failed to schedule log cleanup: %w", err)
		}
	}

	if s.buckets != nil {
		_, err := s.scheduler.Every(bucketPruneInterval).WaitForSchedule().Tag(JobBucketPruner).Do(s.pruneBuckets)
		if err != nil {
			logging.Error("Failed to schedule rate limiter pruning", "error", err)
			return fmt.Errorf("failed to schedule rate limiter pruning: %w", err)
		}
	}

	s.scheduler.StartAsync()
	s.started = true

	logging.Info("Maintenance scheduler started", "jobs", len(s.scheduler.Jobs()))
	return nil
}

// Stop stops the scheduler and removes its jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.scheduler.Stop()
	s.scheduler.Clear()
	s.started = false
}

// NextRuns returns the next run of each job. It is empty when stopped.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make(map[string]time.Time)
	if !s.started {
		return runs
	}

	for _, job := range s.scheduler.Jobs() {
		tags := job.Tags()
		if len(tags) == 0 {
			continue
		}
		runs[tags[0]] = job.NextRun()
	}
	return runs
}

func (s *Scheduler) cleanupLogs() {
	deleted, err := s.logs.CleanupOldLogs()
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues(JobLogCleanup, "error").Inc()
		logging.Warn("Failed to clean up old logs", "error", err)
		return
	}

	metrics.MaintenanceRuns.WithLabelValues(JobLogCleanup, "ok").Inc()
	if deleted > 0 {
		logging.Info("Cleaned up old log files", "deleted", deleted)
	}
}

func (s *Scheduler) pruneBuckets() {
	removed := s.buckets.PruneBuckets()
	metrics.MaintenanceRuns.WithLabelValues(JobBucketPruner, "ok").Inc()
	logging.Debug("Pruned idle rate limiter buckets", "removed", removed)
}
