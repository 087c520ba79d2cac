package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hipp-erp/identity/internal/identity/store"
)

// HousekeepingService periodically trims expired workflow tokens and
// activity-log rows past the retention window, keeping the database from
// growing without bound.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service. A zero or
// negative interval defaults to 1 hour; a zero or negative retention
// defaults to 90 days.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval, "retention", s.Retention)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletions. Each task is independent, a
// failure in one does not stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()
	s.Logger.Info("starting housekeeping cleanup")

	// Drop activity rows older than the retention window.
	cutoff := now.Add(-s.Retention)
	if purged, err := s.Store.Activity().DeleteOlderThan(ctx, cutoff); err != nil {
		s.Logger.Error("failed to purge old activity logs", "error", err)
	} else if purged > 0 {
		s.Logger.Info("purged old activity logs", "rows", purged, "cutoff", cutoff)
	}

	// Null out expired reset and email-change token state.
	if err := s.Store.Users().ClearExpiredWorkflowTokens(ctx, now); err != nil {
		s.Logger.Error("failed to clear expired workflow tokens", "error", err)
	} else {
		s.Logger.Debug("cleared expired workflow tokens")
	}

	s.Logger.Info("housekeeping cleanup completed")
}
