package services

import (
	"context"
	"fmt"
	"time"

	"readhub/config"
	"readhub/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartScheduler registers the daily missed-day batch and the periodic
// preferred-study-hour recompute. Cron specs run in the fixed operating
// zone so "midnight" means the engine's civil midnight.
func StartScheduler(cfg *config.Config) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Streak.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Streak.Timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Streak.MissedDayCron, func() {
		svc := GetStreakService()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := svc.ProcessAllMissedDays(ctx, svc.Today()); err != nil {
			utils.Logger.Error("missed_day_batch_error", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule missed-day batch: %w", err)
	}

	_, err = c.AddFunc(cfg.Streak.StudyHourCron, func() {
		svc := GetStreakService()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := svc.RecomputeAllPreferredStudyHours(ctx, time.Now()); err != nil {
			utils.Logger.Error("study_hour_batch_error", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule study-hour recompute: %w", err)
	}

	c.Start()
	utils.Logger.Info("scheduler_started",
		zap.String("missedDayCron", cfg.Streak.MissedDayCron),
		zap.String("studyHourCron", cfg.Streak.StudyHourCron),
		zap.String("timezone", cfg.Streak.Timezone),
	)
	return c, nil
}
