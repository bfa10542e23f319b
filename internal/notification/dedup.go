package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	reminderKeyPrefix = "ledgerly:reminder:"
	reminderClaimTTL  = 48 * time.Hour
)

// ReminderStore remembers which reminders were already sent.
type ReminderStore struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewReminderStore builds a Redis-backed reminder store.
func NewReminderStore(cache *redis.Client) *ReminderStore {
	return &ReminderStore{cache: cache, ttl: reminderClaimTTL}
}

func reminderKey(ownerID, instrumentID string, day time.Time) string {
	return reminderKeyPrefix + ownerID + ":" + instrumentID + ":" + day.UTC().Format(time.DateOnly)
}

// Claim marks the reminder for (owner, instrument, day) as sent. It reports
// false when an earlier call already claimed it.
func (s *ReminderStore) Claim(ctx context.Context, ownerID, instrumentID string, day time.Time) (bool, error) {
	ok, err := s.cache.SetNX(ctx, reminderKey(ownerID, instrumentID, day), time.Now().UTC().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	return ok, nil
}

// Release forgets a claim so the reminder can be retried.
func (s *ReminderStore) Release(ctx context.Context, ownerID, instrumentID string, day time.Time) error {
	if err := s.cache.Del(ctx, reminderKey(ownerID, instrumentID, day)).Err(); err != nil {
		return fmt.Errorf("release reminder: %w", err)
	}
	return nil
}
