package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"

	"github.com/tempmap/tempmap/internal/weather"
)

// Scheduler periodically re-runs the dataset loader so a long-lived service
// keeps serving a current forecast. The initial load at startup is owned by
// main; the scheduler only handles refreshes.
type Scheduler struct {
	scheduler *gocron.Scheduler
	loader    *weather.Loader
	interval  time.Duration
	timeout   time.Duration

	// base context for refresh jobs, set by Start; an in-flight refresh
	// stops issuing upstream requests once it is cancelled.
	ctx context.Context
}

// New creates a Scheduler around the loader.
func New(loader *weather.Loader, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		loader:    loader,
		interval:  interval,
		timeout:   30 * time.Minute,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The
// job waits a full interval before its first run: the initial load already
// runs at startup, and an immediate refresh would double every upstream
// request. Refresh contexts derive from ctx, so cancelling it (shutdown)
// also stops a refresh in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		log.Info("scheduler: refresh disabled (non-positive interval)")
		return nil
	}

	s.ctx = ctx

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) refresh() {
	log.Info("scheduler: refreshing temperature dataset")

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	if err := s.loader.Run(ctx); err != nil {
		// The dataset keeps its last good records; just log.
		log.WithError(err).Warn("scheduler: refresh failed")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
