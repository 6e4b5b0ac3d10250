package scheduler

import (
	"context"
	"fmt"
	"log"

	"DailyBias/internal/app"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically rebuilds every asset's quiz set so the pool
// of anchor dates follows the market instead of freezing at startup.
type Scheduler struct {
	Cron *cron.Cron
	App  *app.App
	Ctx  context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, a *app.App) *Scheduler {
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds()),
		App:  a,
		Ctx:  ctx,
	}
}

// Register registers the refresh task under the given cron spec.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	log.Println("[INFO] running quiz refresh")
	s.App.BuildAll(s.Ctx)
}
