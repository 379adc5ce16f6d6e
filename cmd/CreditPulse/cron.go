package main

import (
	"context"
	"time"

	"CreditPulse/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartMaintenanceCron starts the background maintenance scheduler:
//   - every 10 minutes: trim each session's processed-event and
//     processed-request sets down to their retention size
//   - hourly: evict sessions idle past the stale horizon
func StartMaintenanceCron(sessions *biz.SessionUsecase, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(logger)

	c := cron.New(cron.WithSeconds())

	// Cron expression: second minute hour day month weekday
	_, err := c.AddFunc("0 */10 * * * *", func() {
		sessions.CleanupProcessedSets()
	})
	if err != nil {
		helper.Errorw("msg", "failed to register processed-set sweep", "error", err)
		return nil
	}

	_, err = c.AddFunc("0 0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		sessions.EvictStaleSessions(ctx)
	})
	if err != nil {
		helper.Errorw("msg", "failed to register stale-session eviction", "error", err)
		return nil
	}

	c.Start()
	helper.Infow("msg", "maintenance scheduler started",
		"processed_set_sweep", "every 10 minutes",
		"stale_session_eviction", "hourly",
		"type", "scheduler")

	return c
}
