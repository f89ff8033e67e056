// Package redisstore implements the seen store on Redis. Each
// (owner, session) pair maps to a set of shown content ids with a TTL, so the
// recency window is enforced by key expiry instead of a pruning sweep.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/storage"
)

// SeenStore tracks shown content ids in Redis sets.
type SeenStore struct {
	client *redis.Client
	window time.Duration
}

var _ storage.SeenStore = (*SeenStore)(nil)

// New creates a SeenStore. The window bounds how long shown ids are retained.
func New(client *redis.Client, window time.Duration) *SeenStore {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &SeenStore{client: client, window: window}
}

func seenKey(ownerID, sessionID string) string {
	return fmt.Sprintf("feed:seen:%s:%s", ownerID, sessionID)
}

func (s *SeenStore) RecordSeen(ctx context.Context, records []feed.SeenRecord) error {
	if len(records) == 0 {
		return nil
	}

	byKey := make(map[string][]interface{})
	for _, rec := range records {
		if rec.OwnerID == "" || rec.PostID == "" {
			return fmt.Errorf("seen record requires owner and post ids")
		}
		key := seenKey(rec.OwnerID, rec.SessionID)
		byKey[key] = append(byKey[key], rec.PostID)
	}

	pipe := s.client.TxPipeline()
	for key, ids := range byKey {
		pipe.SAdd(ctx, key, ids...)
		pipe.Expire(ctx, key, s.window)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SeenStore) ListSeenPostIDs(ctx context.Context, ownerID, sessionID string, _ time.Duration) (map[string]struct{}, error) {
	members, err := s.client.SMembers(ctx, seenKey(ownerID, sessionID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(members))
	for _, id := range members {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// DeleteExpiredSeen is a no-op: key TTLs already enforce the window.
func (s *SeenStore) DeleteExpiredSeen(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}
