// Package scheduler runs the tracker's recurring jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobFunc is the body of a scheduled job. The context carries the
// job's execution timeout.
type JobFunc func(ctx context.Context) error

// Scheduler manages the recurring probability update, historical
// refresh and stale run sweep jobs.
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          map[string]cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler. All schedules are evaluated
// in UTC.
func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		logger:          logger,
		jobIDs:          make(map[string]cron.EntryID),
		gracefulTimeout: 30 * time.Second,
	}
}

// RegisterJob schedules a named job with the given cron expression.
// The job runs with the given timeout; panics are recovered and logged
// so one bad run cannot take the process down.
func (s *Scheduler) RegisterJob(name, cronExpression string, timeout time.Duration, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot register job %q while scheduler is running", name)
	}
	if _, exists := s.jobIDs[name]; exists {
		return fmt.Errorf("job %q is already registered", name)
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(logrus.Fields{
					"job":   name,
					"panic": r,
				}).Error("Scheduled job panicked")
			}
		}()

		started := time.Now()
		s.logger.WithField("job", name).Info("Starting scheduled job")

		if err := fn(ctx); err != nil {
			s.logger.WithFields(logrus.Fields{
				"job":              name,
				"duration_seconds": time.Since(started).Seconds(),
			}).WithError(err).Error("Scheduled job failed")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"job":              name,
			"duration_seconds": time.Since(started).Seconds(),
		}).Info("Scheduled job completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job %q: %w", name, err)
	}

	s.jobIDs[name] = entryID
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": cronExpression,
	}).Info("Registered scheduled job")

	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs registered")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting up to the graceful
// timeout for in-flight jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}

	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the earliest next execution time across all jobs.
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// JobNames returns the names of all registered jobs.
func (s *Scheduler) JobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobIDs))
	for name := range s.jobIDs {
		names = append(names, name)
	}

	return names
}

// Entries returns the cron entries for all registered jobs.
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}

// RemoveJob removes a registered job by name.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job %q while scheduler is running", name)
	}

	jobID, exists := s.jobIDs[name]
	if !exists {
		return fmt.Errorf("job %q is not registered", name)
	}

	s.cron.Remove(jobID)
	delete(s.jobIDs, name)
	s.logger.WithField("job", name).Info("Removed scheduled job")

	return nil
}
