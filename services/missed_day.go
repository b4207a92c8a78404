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

// ProcessAllMissedDays runs the daily batch: for every user with a live
// streak, bridge or break the days missed since their last completion.
// A failure for one user is logged and does not stop the batch.
func (s *StreakService) ProcessAllMissedDays(ctx context.Context, today string) error {
	reports, err := s.reports.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active reports: %w", err)
	}

	processed, resets, failures := 0, 0, 0
	for i := range reports {
		userID := reports[i].UserID
		wasReset, err := s.processMissedDaysLocked(ctx, userID, today)
		if err != nil {
			failures++
			utils.Logger.Error("missed_day_processing_failed",
				zap.String("userId", userID.Hex()),
				zap.Int("processed", processed),
				zap.Int("resets", resets),
				zap.Error(err),
			)
			continue
		}
		processed++
		if wasReset {
			resets++
		}
	}

	utils.Logger.Info("missed_day_batch_finished",
		zap.String("today", today),
		zap.Int("processed", processed),
		zap.Int("resets", resets),
		zap.Int("failures", failures),
	)
	return nil
}

// processMissedDaysLocked re-reads the report under the user's lock; the
// ListActive snapshot only selects users and may be stale by the time
// the batch reaches one.
func (s *StreakService) processMissedDaysLocked(ctx context.Context, userID primitive.ObjectID, today string) (bool, error) {
	unlock := s.locks.Lock(userID.Hex())
	defer unlock()

	report, err := s.reports.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrReportNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.ProcessMissedDays(ctx, report, today)
}

// ProcessMissedDays walks every date between the user's last completion
// and yesterday. Each missed day consumes one freeze while the balance
// lasts; the first day that cannot be bridged resets the streak.
// Re-running for the same today is a no-op thanks to the FREEZE_USED
// skip guard.
func (s *StreakService) ProcessMissedDays(ctx context.Context, report *models.UserStudyReport, today string) (bool, error) {
	if report.CurrentStreak == 0 || report.LastCompletionDate == "" {
		return false, nil
	}

	changed := false
	for d := utils.NextDay(report.LastCompletionDate); d < today; d = utils.NextDay(d) {
		existing, err := s.completions.Get(ctx, report.UserID, d)
		if err != nil && !errors.Is(err, db.ErrCompletionNotFound) {
			return false, err
		}
		// Already bridged on an earlier run
		if existing != nil && existing.StreakStatus == models.StreakFreezeUsed {
			continue
		}

		if report.AvailableFreezes > 0 {
			report.AvailableFreezes--
			tx := newFreezeTransaction(report.UserID, -1, fmt.Sprintf("auto-consumed for %s", d), s.now())
			if err := s.ledger.Append(ctx, tx); err != nil {
				return false, err
			}

			if existing == nil {
				existing = &models.DailyCompletion{UserID: report.UserID, Date: d}
			}
			streakCount := report.CurrentStreak
			existing.StreakStatus = models.StreakFreezeUsed
			existing.StreakCount = &streakCount
			if err := s.completions.Upsert(ctx, existing); err != nil {
				return false, err
			}
			changed = true

			utils.Logger.Info("freeze_consumed",
				zap.String("userId", report.UserID.Hex()),
				zap.String("date", d),
				zap.Int("remaining", report.AvailableFreezes),
			)
			s.publish(models.StreakEvent{
				Type:             "freeze_used",
				UserID:           report.UserID.Hex(),
				Date:             d,
				CurrentStreak:    report.CurrentStreak,
				AvailableFreezes: report.AvailableFreezes,
			})
			continue
		}

		// Out of freezes: the streak breaks here
		report.CurrentStreak = 0
		report.LastCompletionDate = ""
		report.StreakStartDate = ""
		if err := s.reports.Save(ctx, report); err != nil {
			return false, err
		}

		utils.Logger.Info("streak_reset",
			zap.String("userId", report.UserID.Hex()),
			zap.String("firstUnbridgedDate", d),
		)
		s.publish(models.StreakEvent{
			Type:             "streak_reset",
			UserID:           report.UserID.Hex(),
			Date:             d,
			CurrentStreak:    0,
			AvailableFreezes: report.AvailableFreezes,
		})
		return true, nil
	}

	if changed {
		if err := s.reports.Save(ctx, report); err != nil {
			return false, err
		}
	}
	return false, nil
}
