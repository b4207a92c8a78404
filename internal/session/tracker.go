package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionTTL bounds how long an abandoned session marker lives
const sessionTTL = 24 * time.Hour

// Tracker records reading-session start markers in Redis and answers
// whether the current session for a piece of content has lasted long
// enough to count toward the daily streak.
type Tracker struct {
	client      *redis.Client
	minDuration time.Duration
	now         func() time.Time
}

// NewTracker builds a tracker over the shared Redis client
func NewTracker(client *redis.Client, minSeconds int) *Tracker {
	return &Tracker{
		client:      client,
		minDuration: time.Duration(minSeconds) * time.Second,
		now:         time.Now,
	}
}

func sessionKey(userID, contentType, contentID string) string {
	return fmt.Sprintf("session:%s:%s:%s", userID, contentType, contentID)
}

// Start marks the beginning of a reading session. Re-opening the same
// content restarts the marker.
func (t *Tracker) Start(ctx context.Context, userID, contentType, contentID string) error {
	key := sessionKey(userID, contentType, contentID)
	startedAt := strconv.FormatInt(t.now().UnixMilli(), 10)
	if err := t.client.Set(ctx, key, startedAt, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to mark session start: %w", err)
	}
	return nil
}

// Elapsed returns how long the current session has been open, or zero if
// no session marker exists.
func (t *Tracker) Elapsed(ctx context.Context, userID, contentType, contentID string) (time.Duration, error) {
	key := sessionKey(userID, contentType, contentID)
	val, err := t.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read session marker: %w", err)
	}

	startedMilli, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed session marker %q: %w", val, err)
	}

	elapsed := t.now().Sub(time.UnixMilli(startedMilli))
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, nil
}

// IsValid reports whether the session has lasted at least the configured
// minimum duration.
func (t *Tracker) IsValid(ctx context.Context, userID, contentType, contentID string) (bool, error) {
	elapsed, err := t.Elapsed(ctx, userID, contentType, contentID)
	if err != nil {
		return false, err
	}
	return elapsed >= t.minDuration, nil
}
