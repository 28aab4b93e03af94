package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
)

const (
	sessionKeyPrefix = "graphv:session:" // Session snapshot: graphv:session:{session_id}
	sessionIndexKey  = "graphv:sessions" // Set of live session IDs
	sessionTTL       = 24 * time.Hour
)

// SnapshotRepository persists session snapshots in Redis so a restarted
// instance can pick up where the client left off. Snapshots expire with
// the session TTL.
type SnapshotRepository struct {
	client *redis.Client
}

func NewSnapshotRepository(client *redis.Client) *SnapshotRepository {
	return &SnapshotRepository{client: client}
}

// Save stores the snapshot under the session ID and refreshes the TTL.
func (r *SnapshotRepository) Save(ctx context.Context, sessionID string, sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.sessionKey(sessionID), data, sessionTTL)
	pipe.SAdd(ctx, sessionIndexKey, sessionID)
	pipe.Expire(ctx, sessionIndexKey, sessionTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load retrieves a snapshot, or domain.ErrSessionNotFound.
func (r *SnapshotRepository) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return domain.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return sess, nil
}

// Delete removes a snapshot and its index entry.
func (r *SnapshotRepository) Delete(ctx context.Context, sessionID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.sessionKey(sessionID))
	pipe.SRem(ctx, sessionIndexKey, sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListIDs returns the IDs of every live session.
func (r *SnapshotRepository) ListIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

func (r *SnapshotRepository) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, sessionID)
}
