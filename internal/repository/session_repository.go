package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Session field names kept under the configured key prefix.
const (
	SessionFieldAuthenticated = "isAuthenticated"
	SessionFieldUserData      = "userData"
	SessionFieldSemester      = "selectedSemester"
	SessionFieldSchoolURLKey  = "schoolUrlKey"
)

// SessionFields lists every persisted session field.
var SessionFields = []string{SessionFieldAuthenticated, SessionFieldUserData, SessionFieldSemester, SessionFieldSchoolURLKey}

// SessionRepository stores the single-slot session as plain redis string keys.
type SessionRepository struct {
	client *redis.Client
	prefix string
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(client *redis.Client, prefix string) *SessionRepository {
	if prefix == "" {
		prefix = "duetable:session:"
	}
	return &SessionRepository{client: client, prefix: prefix}
}

// Get returns the value of one field. The bool is false when the key is absent.
func (r *SessionRepository) Get(ctx context.Context, field string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get session %s: %w", field, err)
	}
	return val, true, nil
}

// Set writes one field without expiry.
func (r *SessionRepository) Set(ctx context.Context, field, value string) error {
	if err := r.client.Set(ctx, r.prefix+field, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", field, err)
	}
	return nil
}

// Delete removes the given fields in one round trip.
func (r *SessionRepository) Delete(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, len(fields))
	for i, field := range fields {
		keys[i] = r.prefix + field
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Ping checks redis reachability for readiness probes.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
