package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"readhub/config"
	"readhub/db"
	"readhub/models"
	"readhub/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// StreakService is the streak-accounting engine. It owns all writes to
// UserStudyReport / DailyCompletion / FreezeTransaction state and
// serializes them per user.
type StreakService struct {
	reports     ReportStore
	completions CompletionStore
	ledger      FreezeLedger
	tickets     TicketGranter
	sessions    SessionValidator
	events      EventPublisher
	locks       *userLocks

	loc            *time.Location
	now            func() time.Time
	freezeCap      int
	freezeInterval int
	milestones     []int
	studyWindow    int
}

var streakService *StreakService

// InitStreakService wires the engine against the mongo-backed stores
func InitStreakService(cfg *config.Config, sessions SessionValidator, events EventPublisher) error {
	loc, err := time.LoadLocation(cfg.Streak.Timezone)
	if err != nil {
		return fmt.Errorf("invalid streak timezone %q: %w", cfg.Streak.Timezone, err)
	}

	streakService = &StreakService{
		reports:        db.NewReportStore(),
		completions:    db.NewCompletionStore(),
		ledger:         db.NewFreezeLedger(),
		tickets:        NewTicketService(),
		sessions:       sessions,
		events:         events,
		locks:          newUserLocks(),
		loc:            loc,
		now:            time.Now,
		freezeCap:      cfg.Streak.FreezeCap,
		freezeInterval: cfg.Streak.FreezeInterval,
		milestones:     cfg.Streak.RewardMilestones,
		studyWindow:    cfg.Streak.StudyHourWindow,
	}
	return nil
}

// GetStreakService returns the engine singleton
func GetStreakService() *StreakService {
	return streakService
}

// Today returns the current civil date in the operating zone
func (s *StreakService) Today() string {
	return utils.CivilDate(s.now(), s.loc)
}

func (s *StreakService) publish(event models.StreakEvent) {
	if s.events != nil {
		event.Timestamp = s.now()
		s.events.Publish(event)
	}
}

// getOrCreateReport returns the user's report, creating a fresh one when
// the user has no streak history yet
func (s *StreakService) getOrCreateReport(ctx context.Context, userID primitive.ObjectID) (*models.UserStudyReport, error) {
	report, err := s.reports.Get(ctx, userID)
	if err == nil {
		return report, nil
	}
	if errors.Is(err, db.ErrReportNotFound) {
		return &models.UserStudyReport{UserID: userID}, nil
	}
	return nil, err
}

func (s *StreakService) getOrCreateCompletion(ctx context.Context, userID primitive.ObjectID, date string) (*models.DailyCompletion, error) {
	completion, err := s.completions.Get(ctx, userID, date)
	if err == nil {
		return completion, nil
	}
	if errors.Is(err, db.ErrCompletionNotFound) {
		return &models.DailyCompletion{UserID: userID, Date: date}, nil
	}
	return nil, err
}

// UpdateStreak advances the user's streak for today if the reading
// session was long enough and no completion has been counted today.
// Returns true when the streak advanced.
func (s *StreakService) UpdateStreak(ctx context.Context, userID primitive.ObjectID, contentType, contentID string) (bool, error) {
	unlock := s.locks.Lock(userID.Hex())
	defer unlock()

	valid, err := s.sessions.IsValid(ctx, userID.Hex(), contentType, contentID)
	if err != nil {
		return false, fmt.Errorf("session validity check failed: %w", err)
	}
	if !valid {
		return false, nil
	}

	today := s.Today()

	completion, err := s.getOrCreateCompletion(ctx, userID, today)
	if err != nil {
		return false, err
	}
	// At most one streak increment per civil day
	if completion.TotalCompletionCount >= 1 || completion.StreakStatus == models.StreakCompleted {
		return false, nil
	}

	report, err := s.getOrCreateReport(ctx, userID)
	if err != nil {
		return false, err
	}

	report.CurrentStreak++
	if report.CurrentStreak > report.LongestStreak {
		report.LongestStreak = report.CurrentStreak
	}
	if report.CurrentStreak == 1 {
		report.StreakStartDate = today
	}
	report.LastCompletionDate = today

	if s.freezeInterval > 0 && report.CurrentStreak%s.freezeInterval == 0 && report.AvailableFreezes < s.freezeCap {
		report.AvailableFreezes++
		tx := newFreezeTransaction(userID, 1, fmt.Sprintf("granted at streak %d", report.CurrentStreak), s.now())
		if err := s.ledger.Append(ctx, tx); err != nil {
			return false, err
		}
	}

	for _, milestone := range s.milestones {
		if report.CurrentStreak == milestone {
			s.tickets.GrantTicket(ctx, userID, 1, fmt.Sprintf("streak milestone %d", milestone))
			s.publish(models.StreakEvent{
				Type:             "ticket_granted",
				UserID:           userID.Hex(),
				CurrentStreak:    report.CurrentStreak,
				AvailableFreezes: report.AvailableFreezes,
			})
			break
		}
	}

	streakCount := report.CurrentStreak
	completion.StreakStatus = models.StreakCompleted
	completion.StreakCount = &streakCount
	if err := s.completions.Upsert(ctx, completion); err != nil {
		return false, err
	}
	if err := s.reports.Save(ctx, report); err != nil {
		return false, err
	}

	utils.Logger.Info("streak_updated",
		zap.String("userId", userID.Hex()),
		zap.String("date", today),
		zap.Int("currentStreak", report.CurrentStreak),
	)
	s.publish(models.StreakEvent{
		Type:             "streak_updated",
		UserID:           userID.Hex(),
		Date:             today,
		CurrentStreak:    report.CurrentStreak,
		AvailableFreezes: report.AvailableFreezes,
	})
	return true, nil
}

// AddCompletedContent records a content completion regardless of session
// length. streakUpdated tells it whether UpdateStreak already counted
// today; when it did not and the day has no status yet, the day is
// marked MISSED.
func (s *StreakService) AddCompletedContent(ctx context.Context, userID primitive.ObjectID, contentType, contentID string, streakUpdated bool) error {
	unlock := s.locks.Lock(userID.Hex())
	defer unlock()

	today := s.Today()

	completion, err := s.getOrCreateCompletion(ctx, userID, today)
	if err != nil {
		return err
	}
	report, err := s.getOrCreateReport(ctx, userID)
	if err != nil {
		return err
	}

	contentKey := contentType + ":" + contentID
	if !report.HasCompletedContent(contentKey) {
		report.CompletedContentIDs = append(report.CompletedContentIDs, contentKey)
		completion.FirstCompletionCount++
	}
	completion.TotalCompletionCount++
	completion.CompletedContents = append(completion.CompletedContents, models.CompletedContent{
		ContentType: contentType,
		ContentID:   contentID,
		CompletedAt: s.now(),
	})

	if !streakUpdated && completion.StreakStatus == "" {
		completion.StreakStatus = models.StreakMissed
	}

	elapsed, err := s.sessions.Elapsed(ctx, userID.Hex(), contentType, contentID)
	if err != nil {
		utils.Logger.Warn("session_elapsed_lookup_failed",
			zap.String("userId", userID.Hex()),
			zap.Error(err),
		)
	} else {
		report.TotalReadingTimeSeconds += int64(elapsed.Seconds())
	}

	if err := s.completions.Upsert(ctx, completion); err != nil {
		return err
	}
	return s.reports.Save(ctx, report)
}

// GetStreakInfo returns the user's current streak snapshot; users without
// history get a zero-value report.
func (s *StreakService) GetStreakInfo(ctx context.Context, userID primitive.ObjectID) (*models.UserStudyReport, error) {
	report, err := s.reports.Get(ctx, userID)
	if errors.Is(err, db.ErrReportNotFound) {
		return &models.UserStudyReport{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetCalendar returns one entry per recorded day of the month. Legacy
// rows with an unbackfilled streakCount trigger a full recalculation
// before the month is served.
func (s *StreakService) GetCalendar(ctx context.Context, userID primitive.ObjectID, year, month int) ([]models.CalendarEntry, error) {
	from, to := utils.MonthRange(year, month)

	rows, err := s.completions.Range(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	needsBackfill := false
	for _, row := range rows {
		if row.StreakCount == nil {
			needsBackfill = true
			break
		}
	}
	if needsBackfill {
		if _, err := s.RecalculateUserStudyReport(ctx, userID); err != nil {
			return nil, err
		}
		rows, err = s.completions.Range(ctx, userID, from, to)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]models.CalendarEntry, 0, len(rows))
	for _, row := range rows {
		count := 0
		if row.StreakCount != nil {
			count = *row.StreakCount
		}
		entries = append(entries, models.CalendarEntry{
			Date:        row.Date,
			Status:      row.StreakStatus,
			StreakCount: count,
		})
	}
	return entries, nil
}

// GetLeaderboard returns the longest live streaks
func (s *StreakService) GetLeaderboard(ctx context.Context, limit int64) ([]models.UserStudyReport, error) {
	return s.reports.TopByCurrentStreak(ctx, limit)
}

func newFreezeTransaction(userID primitive.ObjectID, amount int, description string, at time.Time) models.FreezeTransaction {
	return models.FreezeTransaction{
		ID:          newID(),
		UserID:      userID,
		Amount:      amount,
		Description: description,
		CreatedAt:   at,
	}
}
