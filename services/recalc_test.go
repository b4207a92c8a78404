package services

import (
	"context"
	"testing"

	"readhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecalculateBackfillsLegacyRows(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-06"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	// Legacy rows with no streakCount, ending yesterday
	dates := []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "2024-03-05"}
	for _, date := range dates {
		env.seedDay(userID, date, models.StreakCompleted, nil)
	}

	report, err := env.svc.RecalculateUserStudyReport(ctx, userID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	if report.CurrentStreak != 5 || report.LongestStreak != 5 {
		t.Errorf("Expected 5/5, got %d/%d", report.CurrentStreak, report.LongestStreak)
	}
	if report.StreakStartDate != "2024-03-01" || report.LastCompletionDate != "2024-03-05" {
		t.Errorf("Unexpected dates: start=%s last=%s", report.StreakStartDate, report.LastCompletionDate)
	}

	for i, date := range dates {
		row, _ := env.rows.Get(ctx, userID, date)
		if row.StreakCount == nil || *row.StreakCount != i+1 {
			t.Errorf("Expected backfilled streakCount %d on %s, got %v", i+1, date, row.StreakCount)
		}
	}
}

func TestRecalculateFreezeDayKeepsCount(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-03"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-02", models.StreakFreezeUsed, nil)
	env.seedDay(userID, "2024-03-03", models.StreakCompleted, nil)

	report, err := env.svc.RecalculateUserStudyReport(ctx, userID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	// The contiguous COMPLETED/FREEZE_USED run is 3 days long
	if report.CurrentStreak != 3 || report.LongestStreak != 3 {
		t.Errorf("Expected run length 3/3, got %d/%d", report.CurrentStreak, report.LongestStreak)
	}

	// The per-day snapshot keeps the freeze day at the previous count
	expected := map[string]int{"2024-03-01": 1, "2024-03-02": 1, "2024-03-03": 2}
	for date, want := range expected {
		row, _ := env.rows.Get(ctx, userID, date)
		if row.StreakCount == nil || *row.StreakCount != want {
			t.Errorf("Expected streakCount %d on %s, got %v", want, date, row.StreakCount)
		}
	}
}

func TestRecalculateMissedBreaksRun(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-05"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-02", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-03", models.StreakMissed, nil)
	env.seedDay(userID, "2024-03-04", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-05", models.StreakCompleted, nil)

	report, err := env.svc.RecalculateUserStudyReport(ctx, userID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	if report.LongestStreak != 2 {
		t.Errorf("Expected longest 2, got %d", report.LongestStreak)
	}
	if report.CurrentStreak != 2 {
		t.Errorf("Expected trailing run 2, got %d", report.CurrentStreak)
	}
	if report.StreakStartDate != "2024-03-04" {
		t.Errorf("Expected streak start 2024-03-04, got %s", report.StreakStartDate)
	}

	row, _ := env.rows.Get(ctx, userID, "2024-03-03")
	if row.StreakCount == nil || *row.StreakCount != 0 {
		t.Errorf("Expected MISSED day backfilled with 0, got %v", row.StreakCount)
	}
}

func TestRecalculateGapTerminatesRun(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-10"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-02", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-03", models.StreakCompleted, nil)
	// Two-day hole, then a fresh run ending today
	env.seedDay(userID, "2024-03-06", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-07", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-08", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-09", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-10", models.StreakCompleted, nil)

	report, err := env.svc.RecalculateUserStudyReport(ctx, userID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	if report.LongestStreak != 5 {
		t.Errorf("Expected longest 5, got %d", report.LongestStreak)
	}
	if report.CurrentStreak != 5 || report.StreakStartDate != "2024-03-06" {
		t.Errorf("Expected trailing run 5 from 03-06, got %d from %s", report.CurrentStreak, report.StreakStartDate)
	}

	// The second run restarts its per-day counts at 1
	row, _ := env.rows.Get(ctx, userID, "2024-03-06")
	if row.StreakCount == nil || *row.StreakCount != 1 {
		t.Errorf("Expected streakCount 1 on the run restart, got %v", row.StreakCount)
	}
}

func TestRecalculateStaleHistoryZeroesCurrent(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-20"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-02", models.StreakCompleted, nil)

	report, err := env.svc.RecalculateUserStudyReport(ctx, userID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	if report.CurrentStreak != 0 {
		t.Errorf("Expected currentStreak 0 for stale history, got %d", report.CurrentStreak)
	}
	if report.StreakStartDate != "" {
		t.Errorf("Expected empty streakStartDate, got %s", report.StreakStartDate)
	}
	if report.LongestStreak != 2 {
		t.Errorf("Longest streak must still reflect history, got %d", report.LongestStreak)
	}
	if report.LastCompletionDate != "2024-03-02" {
		t.Errorf("Expected lastCompletionDate 2024-03-02, got %s", report.LastCompletionDate)
	}
}

func TestRecalculateReconcilesFreezeBalance(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-02"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, nil)

	// A ledger that drifted above the cap (e.g. repeated recovery refunds)
	for i := 0; i < 3; i++ {
		env.ledger.Append(ctx, models.FreezeTransaction{ID: newID(), UserID: userID, Amount: 1})
	}

	report, err := env.svc.RecalculateUserStudyReport(ctx, userID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}
	if report.AvailableFreezes != 2 {
		t.Errorf("Expected ledger sum clamped to cap 2, got %d", report.AvailableFreezes)
	}
}
