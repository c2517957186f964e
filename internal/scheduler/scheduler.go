// Package scheduler runs the mailbox harvest on a fixed cron interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"order-recon-go/config"
	"order-recon-go/internal/harvester"
	"order-recon-go/internal/mailbox"
	"order-recon-go/internal/metrics"
)

// Scheduler manages the periodic harvest cycle
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	cfg       *config.Config
	harvester *harvester.Harvester
	metrics   *metrics.Metrics
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.Config, h *harvester.Harvester, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		cfg:       cfg,
		harvester: h,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	// A previous Stop cancelled the context; restarts need a fresh one
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	// Schedule the job to run every N minutes
	schedule := fmt.Sprintf("0 */%d * * * *", s.cfg.Scheduler.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.runHarvest)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.cfg.Scheduler.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	// Cancel context to stop any running harvest
	s.cancel()

	// Stop the cron scheduler and drop the entry so a restart does not
	// register the job twice
	s.cron.Remove(s.entryID)
	ctx := s.cron.Stop()

	// Wait for all jobs to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runHarvest is the cron entry point. A cycle that fires while the
// scheduler is being stopped is skipped.
func (s *Scheduler) runHarvest() {
	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping harvest cycle")
		return
	}
	ctx := s.ctx
	s.mu.RUnlock()

	logrus.Info("Starting scheduled harvest cycle")
	s.harvestCycle(ctx)
}

// harvestCycle runs one metered harvest over the configured window
func (s *Scheduler) harvestCycle(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	startTime := time.Now()
	s.metrics.HarvestRuns.Inc()

	summary, err := s.harvest(ctx)
	duration := time.Since(startTime)
	s.metrics.HarvestDuration.Observe(duration.Seconds())

	if err != nil {
		logrus.Errorf("Scheduled harvest failed: %v", err)
		s.metrics.HarvestFailures.Inc()
		return
	}

	s.metrics.MessagesProcessed.Add(float64(summary.ProcessedCount))
	s.metrics.ShipmentsInserted.Add(float64(summary.InsertedCount))
	s.metrics.LastHarvestTime.SetToCurrentTime()

	logrus.WithFields(logrus.Fields{
		"message_count": summary.TotalCandidates,
		"processed":     summary.ProcessedCount,
		"inserted":      summary.InsertedCount,
		"duration":      duration.String(),
	}).Info("Scheduled harvest cycle completed")
}

// harvest runs one harvest over the full configured window using the
// service refresh token.
func (s *Scheduler) harvest(ctx context.Context) (*harvester.Summary, error) {
	start, err := time.Parse("2006-01-02", s.cfg.Harvest.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid harvest start date: %w", err)
	}

	cred := mailbox.Credential{RefreshToken: s.cfg.Google.RefreshToken}
	window := harvester.Window{
		Start: start,
		End:   time.Now().UTC().Add(24 * time.Hour),
	}

	return s.harvester.Harvest(ctx, s.cfg.Harvest.UserID, cred, window, harvester.Options{})
}

// RunOnce runs the harvest once (for manual triggering). It bypasses the
// running check so a stopped scheduler can still be triggered by hand, and
// that means a context cancelled by Stop must be replaced first.
func (s *Scheduler) RunOnce() error {
	logrus.Info("Running harvest once")

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.harvestCycle(ctx)
	return nil
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Prev
}

// Wait waits for in-flight harvest cycles to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
