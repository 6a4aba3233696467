package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the expiry sweep once a minute.
const DefaultSweepSchedule = "@every 1m"

// Sweeper runs Hub.CleanExpired on a cron schedule.
type Sweeper struct {
	hub  *Hub
	cron *cron.Cron
	log  *slog.Logger
}

// NewSweeper schedules sweeps of hub. The schedule accepts standard cron
// expressions and descriptors such as "@every 30s".
func NewSweeper(hub *Hub, schedule string, log *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if log == nil {
		log = slog.Default()
	}
	cronLog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelError))
	s := &Sweeper{
		hub:  hub,
		cron: cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog))),
		log:  log,
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run performs one sweep.
func (s *Sweeper) Run() {
	start := time.Now()
	removed := s.hub.CleanExpired()
	s.log.Debug("expiry sweep finished", "removed", removed, "elapsed", time.Since(start))
}

// Start begins running sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("expiry sweeper started", "entries", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for a running sweep until ctx is done.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.log.Info("expiry sweeper stopped")
}
