// Package scheduler fires daily jobs at a fixed local hour.
package scheduler

import (
	"context"
	"sync"
	"time"

	"rent-reminder/internal/duedate"
	"rent-reminder/internal/logging"
)

type Job struct {
	Name string
	// Hour is the local hour (0-23) during which the job fires.
	Hour int
	Run  func(ctx context.Context, now time.Time) error
}

// Scheduler checks its jobs every interval. A job runs at most once per
// calendar day; a day whose hour was missed (process down) is skipped.
type Scheduler struct {
	loc      *time.Location
	jobs     []Job
	interval time.Duration
	logger   logging.Logger

	mu      sync.Mutex
	lastRun map[string]time.Time
}

func New(loc *time.Location, logger logging.Logger, jobs ...Job) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		loc:      loc,
		jobs:     jobs,
		interval: time.Minute,
		logger:   logger,
		lastRun:  make(map[string]time.Time),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick runs every job due at now. Jobs run one after the other.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	local := now.In(s.loc)
	today := duedate.Day(local)

	for _, job := range s.jobs {
		if local.Hour() != job.Hour || !s.claim(job.Name, today) {
			continue
		}
		entry := s.logger.WithField("job", job.Name)
		entry.Info("Running scheduled job")
		if err := job.Run(ctx, now); err != nil {
			entry.WithError(err).Error("Scheduled job failed")
		}
	}
}

func (s *Scheduler) claim(name string, day time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastRun[name]; ok && last.Equal(day) {
		return false
	}
	s.lastRun[name] = day
	return true
}
