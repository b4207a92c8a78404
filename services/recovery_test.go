package services

import (
	"context"
	"testing"

	"readhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecoverFreezeUsedDayRefundsFreeze(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-03"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, intPtr(1))
	env.seedDay(userID, "2024-03-02", models.StreakFreezeUsed, intPtr(1))
	env.seedDay(userID, "2024-03-03", models.StreakCompleted, intPtr(2))

	report, err := env.svc.RecoverStreak(ctx, userID, "2024-03-02", "2024-03-02")
	if err != nil {
		t.Fatalf("RecoverStreak failed: %v", err)
	}

	row, _ := env.rows.Get(ctx, userID, "2024-03-02")
	if row.StreakStatus != models.StreakCompleted {
		t.Errorf("Expected FREEZE_USED converted to COMPLETED, got %s", row.StreakStatus)
	}
	if row.StreakCount == nil || *row.StreakCount != 2 {
		t.Errorf("Expected recomputed streakCount 2, got %v", row.StreakCount)
	}

	// Exactly one +1 refund on the ledger
	txs := env.ledger.transactions(userID)
	if len(txs) != 1 || txs[0].Amount != 1 {
		t.Fatalf("Expected one +1 refund transaction, got %v", txs)
	}
	if report.AvailableFreezes != 1 {
		t.Errorf("Expected refunded balance 1, got %d", report.AvailableFreezes)
	}

	// The day after the range is re-counted by the cascade
	after, _ := env.rows.Get(ctx, userID, "2024-03-03")
	if after.StreakCount == nil || *after.StreakCount != 3 {
		t.Errorf("Expected cascaded streakCount 3, got %v", after.StreakCount)
	}
	if report.CurrentStreak != 3 {
		t.Errorf("Expected re-derived currentStreak 3, got %d", report.CurrentStreak)
	}
}

func TestRecoverMissedDayNoRefund(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-03"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, intPtr(1))
	env.seedDay(userID, "2024-03-02", models.StreakMissed, intPtr(0))
	env.seedDay(userID, "2024-03-03", models.StreakCompleted, intPtr(1))

	report, err := env.svc.RecoverStreak(ctx, userID, "2024-03-02", "2024-03-02")
	if err != nil {
		t.Fatalf("RecoverStreak failed: %v", err)
	}

	row, _ := env.rows.Get(ctx, userID, "2024-03-02")
	if row.StreakStatus != models.StreakCompleted {
		t.Errorf("Expected MISSED converted to COMPLETED, got %s", row.StreakStatus)
	}

	// A missed day was never a freeze use, so nothing is refunded
	if txs := env.ledger.transactions(userID); len(txs) != 0 {
		t.Errorf("Expected no ledger transactions, got %v", txs)
	}
	if report.CurrentStreak != 3 {
		t.Errorf("Expected healed streak 3, got %d", report.CurrentStreak)
	}
}

func TestRecoverCascadeBridgesForwardMiss(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-04"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, intPtr(1))
	env.seedDay(userID, "2024-03-02", models.StreakFreezeUsed, intPtr(1))
	env.seedDay(userID, "2024-03-03", models.StreakMissed, intPtr(0))
	env.seedDay(userID, "2024-03-04", models.StreakCompleted, intPtr(1))

	report, err := env.svc.RecoverStreak(ctx, userID, "2024-03-02", "2024-03-02")
	if err != nil {
		t.Fatalf("RecoverStreak failed: %v", err)
	}

	// The refund freed one freeze, which bridges the forward MISSED day
	bridged, _ := env.rows.Get(ctx, userID, "2024-03-03")
	if bridged.StreakStatus != models.StreakFreezeUsed {
		t.Errorf("Expected cascade to bridge 03-03 with a freeze, got %s", bridged.StreakStatus)
	}

	txs := env.ledger.transactions(userID)
	if len(txs) != 2 {
		t.Fatalf("Expected refund + consumption, got %v", txs)
	}
	if txs[0].Amount != 1 || txs[1].Amount != -1 {
		t.Errorf("Expected +1 then -1, got %+d %+d", txs[0].Amount, txs[1].Amount)
	}

	// Whole history is now one contiguous 4-day run ending today
	if report.CurrentStreak != 4 {
		t.Errorf("Expected currentStreak 4, got %d", report.CurrentStreak)
	}
	if report.AvailableFreezes != 0 {
		t.Errorf("Expected net-zero freeze balance, got %d", report.AvailableFreezes)
	}
}

func TestRecoverCascadeStopsWithoutFreezes(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-04"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, intPtr(1))
	env.seedDay(userID, "2024-03-02", models.StreakMissed, intPtr(0))
	env.seedDay(userID, "2024-03-03", models.StreakMissed, intPtr(0))
	env.seedDay(userID, "2024-03-04", models.StreakCompleted, intPtr(1))

	report, err := env.svc.RecoverStreak(ctx, userID, "2024-03-02", "2024-03-02")
	if err != nil {
		t.Fatalf("RecoverStreak failed: %v", err)
	}

	// No refund happened (the recovered day was MISSED), so the forward
	// MISSED day cannot be bridged and keeps its prior value
	stopped, _ := env.rows.Get(ctx, userID, "2024-03-03")
	if stopped.StreakStatus != models.StreakMissed {
		t.Errorf("Expected 03-03 left MISSED, got %s", stopped.StreakStatus)
	}

	// The streak restarts at the day the cascade could not bridge past
	if report.CurrentStreak != 1 {
		t.Errorf("Expected currentStreak 1 (today only), got %d", report.CurrentStreak)
	}
	if report.StreakStartDate != "2024-03-04" {
		t.Errorf("Expected streak start 2024-03-04, got %s", report.StreakStartDate)
	}
	if report.LongestStreak != 2 {
		t.Errorf("Expected longest 2 (03-01..03-02 after repair), got %d", report.LongestStreak)
	}
}

func TestRecoverFillsAbsentDays(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-04"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	env.seedDay(userID, "2024-03-01", models.StreakCompleted, intPtr(1))
	// 03-02 has no row at all (corrupted history)
	env.seedDay(userID, "2024-03-03", models.StreakCompleted, intPtr(1))

	report, err := env.svc.RecoverStreak(ctx, userID, "2024-03-02", "2024-03-02")
	if err != nil {
		t.Fatalf("RecoverStreak failed: %v", err)
	}

	filled, err := env.rows.Get(ctx, userID, "2024-03-02")
	if err != nil {
		t.Fatal("Expected recovery to create the missing row")
	}
	if filled.StreakStatus != models.StreakCompleted {
		t.Errorf("Expected created row COMPLETED, got %s", filled.StreakStatus)
	}
	if report.CurrentStreak != 3 {
		t.Errorf("Expected healed streak 3 ending yesterday, got %d", report.CurrentStreak)
	}
}

func TestRecoverSeedsFromLegacyHistory(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-04"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	// Legacy rows that predate per-day streak counts
	env.seedDay(userID, "2024-03-01", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-02", models.StreakCompleted, nil)
	env.seedDay(userID, "2024-03-03", models.StreakCompleted, nil)

	report, err := env.svc.RecoverStreak(ctx, userID, "2024-03-04", "2024-03-04")
	if err != nil {
		t.Fatalf("RecoverStreak failed: %v", err)
	}

	// The nil seed row must be backfilled before it seeds the count
	recovered, _ := env.rows.Get(ctx, userID, "2024-03-04")
	if recovered.StreakCount == nil || *recovered.StreakCount != 4 {
		t.Errorf("Expected recovered day streakCount 4, got %v", recovered.StreakCount)
	}
	for i, date := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		row, _ := env.rows.Get(ctx, userID, date)
		if row.StreakCount == nil || *row.StreakCount != i+1 {
			t.Errorf("Expected legacy row %s backfilled to %d, got %v", date, i+1, row.StreakCount)
		}
	}
	if report.CurrentStreak != 4 {
		t.Errorf("Expected currentStreak 4, got %d", report.CurrentStreak)
	}
}

func TestRecoverRejectsInvertedRange(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-04"))
	userID := primitive.NewObjectID()

	if _, err := env.svc.RecoverStreak(context.Background(), userID, "2024-03-03", "2024-03-01"); err == nil {
		t.Error("Expected an error for start > end")
	}
}

func TestRecoverRejectsFutureEndDate(t *testing.T) {
	env := newTestEnv(t, mustDate(t, "2024-03-04"))
	userID := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := env.svc.RecoverStreak(ctx, userID, "2024-03-03", "2024-03-05"); err == nil {
		t.Error("Expected an error for an end date past today")
	}
	// No rows may be created for the rejected range
	if _, err := env.rows.Get(ctx, userID, "2024-03-05"); err == nil {
		t.Error("Rejected recovery must not write completion rows")
	}
}
