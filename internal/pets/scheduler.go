package pets

import (
	"context"
	"time"

	"github.com/pettai/petbot/core/logger"
	"github.com/robfig/cron/v3"
	"log/slog"
)

// wordleCleanupSpec runs shortly after midnight so yesterday's entry survives
// the day boundary.
const wordleCleanupSpec = "10 0 * * *"

// Scheduler owns the bot's periodic jobs.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the daily wordle cleanup against the store.
func NewScheduler(store *WordleStore) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(wordleCleanupSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed, err := store.CleanupOld(ctx, time.Now().UTC())
		if err != nil {
			logger.Error(ctx, "service.wordle", "cleanup.fail",
				slog.String("err", err.Error()),
			)
			return
		}
		logger.Info(ctx, "service.wordle", "cleanup.done",
			slog.Int64("removed", removed),
		)
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
