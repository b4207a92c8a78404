package services

import (
	"context"
	"errors"
	"fmt"

	"readhub/db"
	"readhub/models"
	"readhub/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RecoverStreak is the administrative repair path: every day in
// [startDate, endDate] is converted to COMPLETED (refunding a freeze
// where one had been consumed), later days are re-counted, and the
// report is re-derived from the repaired history. Each invocation is a
// one-time correction; re-running the same range double-refunds
// FREEZE_USED days, so callers must not repeat themselves.
func (s *StreakService) RecoverStreak(ctx context.Context, userID primitive.ObjectID, startDate, endDate string) (*models.UserStudyReport, error) {
	if _, err := utils.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	if _, err := utils.ParseDate(endDate); err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if startDate > endDate {
		return nil, fmt.Errorf("start date %s is after end date %s", startDate, endDate)
	}
	if today := s.Today(); endDate > today {
		return nil, fmt.Errorf("end date %s is in the future (today is %s)", endDate, today)
	}

	unlock := s.locks.Lock(userID.Hex())
	defer unlock()

	// Seed the running count from the day before the recovered range. A
	// legacy seed row with no streakCount must be backfilled first or the
	// recovered days would be stamped from zero.
	prev, err := s.completions.Get(ctx, userID, utils.PrevDay(startDate))
	if err != nil && !errors.Is(err, db.ErrCompletionNotFound) {
		return nil, err
	}
	if prev != nil && prev.StreakStatus.Counts() && prev.StreakCount == nil {
		if _, err := s.recalculate(ctx, userID); err != nil {
			return nil, err
		}
		prev, err = s.completions.Get(ctx, userID, utils.PrevDay(startDate))
		if err != nil && !errors.Is(err, db.ErrCompletionNotFound) {
			return nil, err
		}
	}
	count := 0
	if prev != nil && prev.StreakStatus.Counts() && prev.StreakCount != nil {
		count = *prev.StreakCount
	}

	report, err := s.getOrCreateReport(ctx, userID)
	if err != nil {
		return nil, err
	}

	for d := startDate; d <= endDate; d = utils.NextDay(d) {
		row, err := s.completions.Get(ctx, userID, d)
		if err != nil && !errors.Is(err, db.ErrCompletionNotFound) {
			return nil, err
		}
		if row == nil {
			// No record at all; recovery fills the hole
			row = &models.DailyCompletion{UserID: userID, Date: d}
		}

		if row.StreakStatus == models.StreakFreezeUsed {
			// The day was bridged with a freeze the user should get back
			tx := newFreezeTransaction(userID, 1, fmt.Sprintf("refunded by recovery for %s", d), s.now())
			if err := s.ledger.Append(ctx, tx); err != nil {
				return nil, err
			}
			if report.AvailableFreezes < s.freezeCap {
				report.AvailableFreezes++
			}
		}

		count++
		row.StreakStatus = models.StreakCompleted
		row.StreakCount = &count
		if err := s.completions.Upsert(ctx, row); err != nil {
			return nil, err
		}
	}

	if err := s.cascadeForward(ctx, userID, report, endDate, count); err != nil {
		return nil, err
	}
	if err := s.reports.Save(ctx, report); err != nil {
		return nil, err
	}

	utils.Logger.Info("streak_recovered",
		zap.String("userId", userID.Hex()),
		zap.String("startDate", startDate),
		zap.String("endDate", endDate),
	)

	// Final state always comes from re-derivation over the repaired rows
	return s.recalculate(ctx, userID)
}

// cascadeForward re-counts the days after the recovered range. MISSED or
// absent days are bridged with whatever freeze balance the refunds freed
// up; the cascade stops at the first day it cannot bridge, leaving later
// rows untouched.
func (s *StreakService) cascadeForward(ctx context.Context, userID primitive.ObjectID, report *models.UserStudyReport, endDate string, count int) error {
	rows, err := s.completions.Range(ctx, userID, utils.NextDay(endDate), s.Today())
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	byDate := make(map[string]*models.DailyCompletion, len(rows))
	for i := range rows {
		byDate[rows[i].Date] = &rows[i]
	}
	lastDate := rows[len(rows)-1].Date

	for d := utils.NextDay(endDate); d <= lastDate; d = utils.NextDay(d) {
		row := byDate[d]

		if row != nil && row.StreakStatus == models.StreakCompleted {
			count++
			row.StreakCount = &count
			if err := s.completions.Upsert(ctx, row); err != nil {
				return err
			}
			continue
		}
		if row != nil && row.StreakStatus == models.StreakFreezeUsed {
			// Already bridged; a freeze day carries the count unchanged
			row.StreakCount = &count
			if err := s.completions.Upsert(ctx, row); err != nil {
				return err
			}
			continue
		}

		// MISSED or no record: try to bridge with the freed-up balance
		if report.AvailableFreezes == 0 {
			return nil
		}
		report.AvailableFreezes--
		tx := newFreezeTransaction(userID, -1, fmt.Sprintf("auto-consumed by recovery for %s", d), s.now())
		if err := s.ledger.Append(ctx, tx); err != nil {
			return err
		}

		if row == nil {
			row = &models.DailyCompletion{UserID: userID, Date: d}
		}
		row.StreakStatus = models.StreakFreezeUsed
		row.StreakCount = &count
		if err := s.completions.Upsert(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
