package services

import (
	"context"
	"time"

	"readhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportStore persists the per-user UserStudyReport aggregate
type ReportStore interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.UserStudyReport, error)
	Save(ctx context.Context, report *models.UserStudyReport) error
	ListActive(ctx context.Context) ([]models.UserStudyReport, error)
	ListAll(ctx context.Context) ([]models.UserStudyReport, error)
	TopByCurrentStreak(ctx context.Context, limit int64) ([]models.UserStudyReport, error)
}

// CompletionStore persists DailyCompletion rows keyed by (user, civil date)
type CompletionStore interface {
	Get(ctx context.Context, userID primitive.ObjectID, date string) (*models.DailyCompletion, error)
	Upsert(ctx context.Context, completion *models.DailyCompletion) error
	Range(ctx context.Context, userID primitive.ObjectID, from, to string) ([]models.DailyCompletion, error)
	All(ctx context.Context, userID primitive.ObjectID) ([]models.DailyCompletion, error)
}

// FreezeLedger is the append-only signed-amount transaction log
type FreezeLedger interface {
	Append(ctx context.Context, tx models.FreezeTransaction) error
	Sum(ctx context.Context, userID primitive.ObjectID) (int, error)
}

// TicketGranter issues milestone rewards; fire-and-forget from the
// engine's perspective
type TicketGranter interface {
	GrantTicket(ctx context.Context, userID primitive.ObjectID, amount int, reason string)
}

// SessionValidator answers whether the current reading session for a
// piece of content has lasted long enough to count
type SessionValidator interface {
	IsValid(ctx context.Context, userID, contentType, contentID string) (bool, error)
	Elapsed(ctx context.Context, userID, contentType, contentID string) (time.Duration, error)
}

// EventPublisher fans streak events out to realtime consumers
type EventPublisher interface {
	Publish(event models.StreakEvent)
}
