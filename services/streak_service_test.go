package services

import (
	"context"
	"testing"
	"time"

	"readhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUpdateStreakOncePerDay(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-10").Add(9*time.Hour))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	updated, err := env.svc.UpdateStreak(ctx, userID, "book", "b1")
	if err != nil {
		t.Fatalf("UpdateStreak failed: %v", err)
	}
	if !updated {
		t.Error("Expected first UpdateStreak of the day to return true")
	}

	updated, err = env.svc.UpdateStreak(ctx, userID, "book", "b2")
	if err != nil {
		t.Fatalf("UpdateStreak failed: %v", err)
	}
	if updated {
		t.Error("Expected second UpdateStreak of the day to return false")
	}

	report, _ := env.svc.GetStreakInfo(ctx, userID)
	if report.CurrentStreak != 1 {
		t.Errorf("Expected currentStreak 1, got %d", report.CurrentStreak)
	}
	if report.LastCompletionDate != "2024-03-10" || report.StreakStartDate != "2024-03-10" {
		t.Errorf("Unexpected dates: last=%s start=%s", report.LastCompletionDate, report.StreakStartDate)
	}
}

func TestUpdateStreakRejectsShortSession(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-10"))
	env.sessions.valid = false
	userID := primitive.NewObjectID()

	updated, err := env.svc.UpdateStreak(context.Background(), userID, "book", "b1")
	if err != nil {
		t.Fatalf("UpdateStreak failed: %v", err)
	}
	if updated {
		t.Error("Expected UpdateStreak to return false for a short session")
	}

	report, _ := env.svc.GetStreakInfo(context.Background(), userID)
	if report.CurrentStreak != 0 {
		t.Errorf("Expected currentStreak 0, got %d", report.CurrentStreak)
	}
}

// completeDay runs the request-path pair for one civil day
func completeDay(t *testing.T, env *testEnv, userID primitive.ObjectID, date string, contentID string) bool {
	t.Helper()
	env.setNow(mustDate(t, date).Add(10 * time.Hour))
	updated, err := env.svc.UpdateStreak(context.Background(), userID, "book", contentID)
	if err != nil {
		t.Fatalf("UpdateStreak on %s failed: %v", date, err)
	}
	if err := env.svc.AddCompletedContent(context.Background(), userID, "book", contentID, updated); err != nil {
		t.Fatalf("AddCompletedContent on %s failed: %v", date, err)
	}
	return updated
}

func TestFiveConsecutiveDays(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-01"))
	userID := primitive.NewObjectID()

	dates := []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "2024-03-05"}
	for i, date := range dates {
		if !completeDay(t, env, userID, date, "b1") {
			t.Fatalf("Expected day %d to advance the streak", i+1)
		}
	}

	report, _ := env.svc.GetStreakInfo(context.Background(), userID)
	if report.CurrentStreak != 5 || report.LongestStreak != 5 {
		t.Errorf("Expected streak 5/5, got %d/%d", report.CurrentStreak, report.LongestStreak)
	}
	if report.AvailableFreezes != 1 {
		t.Errorf("Expected one freeze granted at day 5, got %d", report.AvailableFreezes)
	}

	txs := env.ledger.transactions(userID)
	if len(txs) != 1 || txs[0].Amount != 1 {
		t.Fatalf("Expected exactly one +1 ledger transaction, got %v", txs)
	}

	for i, date := range dates {
		row, err := env.rows.Get(context.Background(), userID, date)
		if err != nil {
			t.Fatalf("Missing completion row for %s", date)
		}
		if row.StreakCount == nil || *row.StreakCount != i+1 {
			t.Errorf("Expected streakCount %d on %s, got %v", i+1, date, row.StreakCount)
		}
		if row.StreakStatus != models.StreakCompleted {
			t.Errorf("Expected COMPLETED on %s, got %s", date, row.StreakStatus)
		}
	}
}

func TestFreezeCapNeverExceeded(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-01-01"))
	userID := primitive.NewObjectID()

	date := "2024-01-01"
	for i := 0; i < 20; i++ {
		completeDay(t, env, userID, date, "b1")
		date = nextTestDay(t, date)
	}

	report, _ := env.svc.GetStreakInfo(context.Background(), userID)
	if report.CurrentStreak != 20 {
		t.Fatalf("Expected streak 20, got %d", report.CurrentStreak)
	}
	if report.AvailableFreezes > 2 {
		t.Errorf("Freeze cap exceeded: %d", report.AvailableFreezes)
	}
	if report.AvailableFreezes != 2 {
		t.Errorf("Expected 2 freezes banked, got %d", report.AvailableFreezes)
	}

	// Grants skipped at the cap write no ledger rows
	txs := env.ledger.transactions(userID)
	if len(txs) != 2 {
		t.Errorf("Expected 2 grant transactions (milestones 5 and 10), got %d", len(txs))
	}
}

func TestMilestoneTicketGrantedOnce(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-01-01"))
	userID := primitive.NewObjectID()

	date := "2024-01-01"
	for i := 0; i < 8; i++ {
		completeDay(t, env, userID, date, "b1")
		date = nextTestDay(t, date)
	}

	if len(env.tickets.granted) != 1 {
		t.Fatalf("Expected one ticket grant, got %v", env.tickets.granted)
	}
	if env.tickets.granted[0] != "streak milestone 7" {
		t.Errorf("Unexpected ticket reason: %s", env.tickets.granted[0])
	}
}

func TestAddCompletedContentCounts(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-10").Add(8*time.Hour))
	env.sessions.valid = false // too short to count toward the streak
	userID := primitive.NewObjectID()
	ctx := context.Background()

	if err := env.svc.AddCompletedContent(ctx, userID, "book", "b1", false); err != nil {
		t.Fatalf("AddCompletedContent failed: %v", err)
	}
	if err := env.svc.AddCompletedContent(ctx, userID, "book", "b1", false); err != nil {
		t.Fatalf("AddCompletedContent failed: %v", err)
	}
	if err := env.svc.AddCompletedContent(ctx, userID, "book", "b2", false); err != nil {
		t.Fatalf("AddCompletedContent failed: %v", err)
	}

	row, err := env.rows.Get(ctx, userID, "2024-03-10")
	if err != nil {
		t.Fatalf("Missing completion row: %v", err)
	}
	if row.TotalCompletionCount != 3 {
		t.Errorf("Expected totalCompletionCount 3, got %d", row.TotalCompletionCount)
	}
	if row.FirstCompletionCount != 2 {
		t.Errorf("Expected firstCompletionCount 2, got %d", row.FirstCompletionCount)
	}
	if row.StreakStatus != models.StreakMissed {
		t.Errorf("Expected MISSED day when the streak was not updated, got %s", row.StreakStatus)
	}

	report, _ := env.svc.GetStreakInfo(ctx, userID)
	if len(report.CompletedContentIDs) != 2 {
		t.Errorf("Expected 2 distinct contents, got %v", report.CompletedContentIDs)
	}
	if report.CurrentStreak != 0 {
		t.Errorf("Completions without a valid session must not advance the streak, got %d", report.CurrentStreak)
	}
	if report.TotalReadingTimeSeconds != 270 {
		t.Errorf("Expected 270s of accumulated reading time, got %d", report.TotalReadingTimeSeconds)
	}
}

func TestCompletedDayNotDowngradedToMissed(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-10").Add(8*time.Hour))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	updated, _ := env.svc.UpdateStreak(ctx, userID, "book", "b1")
	if !updated {
		t.Fatal("Expected streak update")
	}
	env.svc.AddCompletedContent(ctx, userID, "book", "b1", updated)

	// A later short-session completion the same day must not flip the status
	env.sessions.valid = false
	env.svc.AddCompletedContent(ctx, userID, "book", "b2", false)

	row, _ := env.rows.Get(ctx, userID, "2024-03-10")
	if row.StreakStatus != models.StreakCompleted {
		t.Errorf("Expected status to stay COMPLETED, got %s", row.StreakStatus)
	}
}

func nextTestDay(t *testing.T, date string) string {
	t.Helper()
	return mustDate(t, date).AddDate(0, 0, 1).Format("2006-01-02")
}
