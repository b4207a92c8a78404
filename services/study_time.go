package services

import (
	"context"
	"errors"
	"time"

	"readhub/db"
	"readhub/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GetPreferredStudyHour returns the cached preferred hour when present,
// computing and caching it otherwise. Returns nil when the user has no
// completion history to derive a preference from.
func (s *StreakService) GetPreferredStudyHour(ctx context.Context, userID primitive.ObjectID) (*int, error) {
	report, err := s.reports.Get(ctx, userID)
	if err != nil && !errors.Is(err, db.ErrReportNotFound) {
		return nil, err
	}
	if report != nil && report.PreferredStudyHour != nil {
		return report.PreferredStudyHour, nil
	}
	return s.CalculateAndSavePreferredStudyHour(ctx, userID, s.now())
}

// CalculateAndSavePreferredStudyHour rebuilds the completion-hour
// histogram over the trailing window and persists the winner. On a tie
// the lower hour wins (first maximum of the ascending scan). Empty
// history writes nothing and returns nil.
func (s *StreakService) CalculateAndSavePreferredStudyHour(ctx context.Context, userID primitive.ObjectID, now time.Time) (*int, error) {
	today := utils.CivilDate(now, s.loc)
	from := utils.AddDays(today, -s.studyWindow)

	rows, err := s.completions.Range(ctx, userID, from, today)
	if err != nil {
		return nil, err
	}

	var histogram [24]int
	total := 0
	for _, row := range rows {
		for _, content := range row.CompletedContents {
			histogram[content.CompletedAt.In(s.loc).Hour()]++
			total++
		}
	}
	if total == 0 {
		return nil, nil
	}

	best := 0
	for hour := 1; hour < 24; hour++ {
		if histogram[hour] > histogram[best] {
			best = hour
		}
	}

	report, err := s.getOrCreateReport(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.PreferredStudyHour = &best
	report.PreferredStudyHourAt = &now
	if err := s.reports.Save(ctx, report); err != nil {
		return nil, err
	}

	utils.Logger.Info("preferred_study_hour_saved",
		zap.String("userId", userID.Hex()),
		zap.Int("hour", best),
		zap.Int("samples", total),
	)
	return &best, nil
}

// RecomputeAllPreferredStudyHours refreshes every user's cached hour;
// the periodic run is what invalidates stale caches.
func (s *StreakService) RecomputeAllPreferredStudyHours(ctx context.Context, now time.Time) error {
	reports, err := s.reports.ListAll(ctx)
	if err != nil {
		return err
	}

	failures := 0
	for _, report := range reports {
		if _, err := s.CalculateAndSavePreferredStudyHour(ctx, report.UserID, now); err != nil {
			failures++
			utils.Logger.Error("study_hour_recompute_failed",
				zap.String("userId", report.UserID.Hex()),
				zap.Error(err),
			)
		}
	}

	utils.Logger.Info("study_hour_recompute_finished",
		zap.Int("users", len(reports)),
		zap.Int("failures", failures),
	)
	return nil
}
