package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StreakStatus is the daily streak outcome for one civil date
type StreakStatus string

const (
	StreakCompleted  StreakStatus = "COMPLETED"
	StreakMissed     StreakStatus = "MISSED"
	StreakFreezeUsed StreakStatus = "FREEZE_USED"
)

// Counts reports whether the status keeps a streak run alive
func (s StreakStatus) Counts() bool {
	return s == StreakCompleted || s == StreakFreezeUsed
}

// CompletedContent is one completion event within a day
type CompletedContent struct {
	ContentType string    `bson:"contentType" json:"contentType"`
	ContentID   string    `bson:"contentId" json:"contentId"`
	CompletedAt time.Time `bson:"completedAt" json:"completedAt"`
}

// DailyCompletion holds everything recorded for one (user, civil date) pair.
// Dates are "YYYY-MM-DD" strings in the fixed operating zone.
type DailyCompletion struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID               primitive.ObjectID `bson:"userId" json:"userId"`
	Date                 string             `bson:"date" json:"date"`
	TotalCompletionCount int                `bson:"totalCompletionCount" json:"totalCompletionCount"`
	FirstCompletionCount int                `bson:"firstCompletionCount" json:"firstCompletionCount"`
	CompletedContents    []CompletedContent `bson:"completedContents" json:"completedContents"`
	StreakStatus         StreakStatus       `bson:"streakStatus" json:"streakStatus"`
	// StreakCount is nil on legacy rows and must be backfilled by
	// recalculation before it can be trusted.
	StreakCount *int      `bson:"streakCount,omitempty" json:"streakCount,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UserStudyReport is the per-user current-state projection, owned by the
// streak engine
type UserStudyReport struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID                  primitive.ObjectID `bson:"userId" json:"userId"`
	CurrentStreak           int                `bson:"currentStreak" json:"currentStreak"`
	LongestStreak           int                `bson:"longestStreak" json:"longestStreak"`
	LastCompletionDate      string             `bson:"lastCompletionDate,omitempty" json:"lastCompletionDate,omitempty"`
	StreakStartDate         string             `bson:"streakStartDate,omitempty" json:"streakStartDate,omitempty"`
	AvailableFreezes        int                `bson:"availableFreezes" json:"availableFreezes"`
	CompletedContentIDs     []string           `bson:"completedContentIds" json:"completedContentIds"`
	TotalReadingTimeSeconds int64              `bson:"totalReadingTimeSeconds" json:"totalReadingTimeSeconds"`
	PreferredStudyHour      *int               `bson:"preferredStudyHour,omitempty" json:"preferredStudyHour,omitempty"`
	PreferredStudyHourAt    *time.Time         `bson:"preferredStudyHourAt,omitempty" json:"preferredStudyHourAt,omitempty"`
	CreatedAt               time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt               time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasCompletedContent checks the ever-completed set
func (r *UserStudyReport) HasCompletedContent(key string) bool {
	for _, id := range r.CompletedContentIDs {
		if id == key {
			return true
		}
	}
	return false
}

// FreezeTransaction is an append-only ledger row. Amount is +1 for a grant
// and -1 for a consumption; the ledger is authoritative over the cached
// AvailableFreezes field.
type FreezeTransaction struct {
	ID          string             `bson:"_id" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Amount      int                `bson:"amount" json:"amount"`
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// Ticket is a reward issued at streak milestones
type Ticket struct {
	ID        string             `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Amount    int                `bson:"amount" json:"amount"`
	Reason    string             `bson:"reason" json:"reason"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// CalendarEntry is one day in the calendar view
type CalendarEntry struct {
	Date        string       `json:"date"`
	Status      StreakStatus `json:"status"`
	StreakCount int          `json:"streakCount"`
}

// StreakEvent is broadcast over the websocket hub when streak state changes
type StreakEvent struct {
	Type             string    `json:"type"` // "streak_updated", "freeze_used", "streak_reset", "ticket_granted"
	UserID           string    `json:"userId"`
	Date             string    `json:"date,omitempty"`
	CurrentStreak    int       `json:"currentStreak"`
	AvailableFreezes int       `json:"availableFreezes"`
	Timestamp        time.Time `json:"timestamp"`
}
