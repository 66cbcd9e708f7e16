// Package jobs manages background tasks (cron).
// scheduler.go sets the schedule: hourly reference-price capture and a
// daily cleanup of stale login attempts.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/features/rates"
)

// AttemptPruner removes stale operator login attempts.
type AttemptPruner interface {
	PruneAttempts(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler manages background tasks.
type Scheduler struct {
	cron        *cron.Cron
	rateService *rates.Service
	pruner      AttemptPruner
}

// NewScheduler creates the task scheduler in the Nairobi timezone, where
// the primary market operates.
func NewScheduler(rateService *rates.Service, pruner AttemptPruner) *Scheduler {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		log.WithError(err).Warn("Failed to load Africa/Nairobi, falling back to UTC+3")
		loc = time.FixedZone("EAT", 3*60*60)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:        c,
		rateService: rateService,
		pruner:      pruner,
	}
}

// Start launches all background tasks.
func (s *Scheduler) Start(ctx context.Context) {
	// Capture the KE reference price from the live basket every hour so
	// the stored rate history stays fresh even without operator pins.
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Capturing reference price")
		rate, err := s.rateService.CaptureCountryRate(ctx, "KE")
		if errors.Is(err, rates.ErrNoLiveRate) {
			log.Warn("[CRON] Live price unavailable, skipping capture")
			return
		}
		if err != nil {
			log.WithError(err).Error("[CRON] Failed to record reference price")
			return
		}
		log.WithField("price", rate.Price.String()).Debug("[CRON] Reference price captured")
	})

	// Daily cleanup at 03:00.
	s.cron.AddFunc("0 3 * * *", func() {
		log.Info("[CRON] Pruning stale login attempts")
		pruned, err := s.pruner.PruneAttempts(ctx, 24*time.Hour)
		if err != nil {
			log.WithError(err).Error("[CRON] Failed to prune login attempts")
			return
		}
		log.WithField("pruned", pruned).Debug("[CRON] Login attempts pruned")
	})

	s.cron.Start()
	log.Info("Task scheduler started (Africa/Nairobi)")
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Task scheduler stopped")
}
