// Package presence tracks which users currently have at least one live gateway connection, backed by a Valkey set
// (keyed "sessions") and per-user connection counters (keyed "session:<user_id>"), adapted from the teacher's
// Valkey-backed presence store to the simpler online/offline model this spec defines.
package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const sessionsSetKey = "sessions"

// Store reads and writes the shared presence set and per-user connection counters.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a Store backed by rdb.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Connect increments the connection counter for userID and returns the resulting count. A transition from 0 to 1
// means the user just became visibly online: the caller is responsible for publishing PRESENCE_UPDATE when the
// user's recorded status is non-offline.
func (s *Store) Connect(ctx context.Context, userID uint64) (int64, error) {
	count, err := s.rdb.Incr(ctx, counterKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("presence: incr counter: %w", err)
	}
	if count == 1 {
		if err := s.rdb.SAdd(ctx, sessionsSetKey, userID).Err(); err != nil {
			return count, fmt.Errorf("presence: add to sessions set: %w", err)
		}
	}
	return count, nil
}

// Disconnect decrements the connection counter for userID and returns the resulting count. A transition to zero or
// below means the user just went offline: the caller is responsible for publishing PRESENCE_UPDATE when the user's
// last-known status was non-offline.
func (s *Store) Disconnect(ctx context.Context, userID uint64) (int64, error) {
	count, err := s.rdb.Decr(ctx, counterKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("presence: decr counter: %w", err)
	}
	if count <= 0 {
		if err := s.rdb.Del(ctx, counterKey(userID)).Err(); err != nil {
			return count, fmt.Errorf("presence: delete counter: %w", err)
		}
		if err := s.rdb.SRem(ctx, sessionsSetKey, userID).Err(); err != nil {
			return count, fmt.Errorf("presence: remove from sessions set: %w", err)
		}
	}
	return count, nil
}

// ForceOffline unconditionally clears userID's presence, regardless of its connection count. It reports whether the
// user was online beforehand. Used when a REST action invalidates a user's standing independently of their gateway
// connection count — e.g. deleting their last session (spec's "removing the only session of an online user triggers
// a presence transition").
func (s *Store) ForceOffline(ctx context.Context, userID uint64) (bool, error) {
	wasOnline, err := s.IsOnline(ctx, userID)
	if err != nil {
		return false, err
	}
	if !wasOnline {
		return false, nil
	}
	if err := s.rdb.Del(ctx, counterKey(userID)).Err(); err != nil {
		return false, fmt.Errorf("presence: delete counter: %w", err)
	}
	if err := s.rdb.SRem(ctx, sessionsSetKey, userID).Err(); err != nil {
		return false, fmt.Errorf("presence: remove from sessions set: %w", err)
	}
	return true, nil
}

// IsOnline reports whether userID has at least one live gateway connection.
func (s *Store) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, sessionsSetKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("presence: check sessions set: %w", err)
	}
	return ok, nil
}

// Online returns every currently online user ID.
func (s *Store) Online(ctx context.Context) ([]uint64, error) {
	members, err := s.rdb.SMembers(ctx, sessionsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: list sessions set: %w", err)
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		var id uint64
		if _, err := fmt.Sscan(m, &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func counterKey(userID uint64) string {
	return fmt.Sprintf("session:%d", userID)
}
