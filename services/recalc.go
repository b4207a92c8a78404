package services

import (
	"context"

	"readhub/models"
	"readhub/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RecalculateUserStudyReport re-derives the user's whole report from
// their completion history and reconciles the cached freeze balance
// against the ledger. It also backfills streakCount on legacy rows that
// never had one.
func (s *StreakService) RecalculateUserStudyReport(ctx context.Context, userID primitive.ObjectID) (*models.UserStudyReport, error) {
	unlock := s.locks.Lock(userID.Hex())
	defer unlock()
	return s.recalculate(ctx, userID)
}

// recalculate is the lock-free core, shared with recovery which already
// holds the user's lock.
func (s *StreakService) recalculate(ctx context.Context, userID primitive.ObjectID) (*models.UserStudyReport, error) {
	rows, err := s.completions.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	report, err := s.getOrCreateReport(ctx, userID)
	if err != nil {
		return nil, err
	}

	// runLength counts every day that keeps the streak alive (COMPLETED
	// and FREEZE_USED); displayCount is the per-day snapshot written to
	// streakCount, where a freeze day carries the previous day's value.
	runLength, maxRun, displayCount := 0, 0, 0
	runStart, lastCounted, prevCounted := "", "", ""

	for i := range rows {
		row := &rows[i]

		if !row.StreakStatus.Counts() {
			runLength, displayCount = 0, 0
			runStart, prevCounted = "", ""
			if row.StreakCount == nil {
				if err := s.backfillStreakCount(ctx, row, 0); err != nil {
					return nil, err
				}
			}
			continue
		}

		if prevCounted != "" && row.Date == utils.NextDay(prevCounted) {
			runLength++
			if row.StreakStatus == models.StreakCompleted {
				displayCount++
			}
		} else {
			runLength = 1
			runStart = row.Date
			if row.StreakStatus == models.StreakCompleted {
				displayCount = 1
			} else {
				displayCount = 0
			}
		}
		if runLength > maxRun {
			maxRun = runLength
		}

		if row.StreakCount == nil {
			if err := s.backfillStreakCount(ctx, row, displayCount); err != nil {
				return nil, err
			}
		}

		prevCounted = row.Date
		lastCounted = row.Date
	}

	today := s.Today()
	if lastCounted != "" && (lastCounted == today || lastCounted == utils.PrevDay(today)) {
		report.CurrentStreak = runLength
		report.StreakStartDate = runStart
	} else {
		report.CurrentStreak = 0
		report.StreakStartDate = ""
	}
	report.LongestStreak = maxRun
	report.LastCompletionDate = lastCounted

	// Ledger reconciliation: the cached balance is a projection of the
	// transaction log, clamped to the 0..cap domain.
	sum, err := s.ledger.Sum(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sum < 0 {
		sum = 0
	}
	if sum > s.freezeCap {
		sum = s.freezeCap
	}
	report.AvailableFreezes = sum

	if err := s.reports.Save(ctx, report); err != nil {
		return nil, err
	}

	utils.Logger.Info("report_recalculated",
		zap.String("userId", userID.Hex()),
		zap.Int("currentStreak", report.CurrentStreak),
		zap.Int("longestStreak", report.LongestStreak),
	)
	return report, nil
}

func (s *StreakService) backfillStreakCount(ctx context.Context, row *models.DailyCompletion, count int) error {
	row.StreakCount = &count
	return s.completions.Upsert(ctx, row)
}
