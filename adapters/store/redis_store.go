package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the SessionStore interface.
// Take uses GETDEL, so at most one concurrent reader sees a given session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "attestor:session:",
		now:    time.Now,
	}
}

var _ ports.SessionStore = (*RedisStore)(nil)

func (s *RedisStore) key(clientKey string, method core.ChannelKind) string {
	return s.prefix + clientKey + ":" + string(method)
}

// Put stores the session with expiration
func (s *RedisStore) Put(ctx context.Context, clientKey string, method core.ChannelKind, session core.VerificationSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(clientKey, method), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Take reads and deletes the session in one round trip
func (s *RedisStore) Take(ctx context.Context, clientKey string, method core.ChannelKind) (core.VerificationSession, error) {
	payload, err := s.client.GetDel(ctx, s.key(clientKey, method)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.VerificationSession{}, core.ErrSessionNotFound
		}
		return core.VerificationSession{}, fmt.Errorf("failed to take session: %w", err)
	}

	var session core.VerificationSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return core.VerificationSession{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Expired(s.now()) {
		return core.VerificationSession{}, core.ErrSessionExpired
	}
	return session, nil
}

// Restore writes the session back with its remaining lifetime, only if the
// slot is empty.
func (s *RedisStore) Restore(ctx context.Context, clientKey string, method core.ChannelKind, session core.VerificationSession) error {
	remaining := session.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.SetNX(ctx, s.key(clientKey, method), payload, remaining).Err(); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	return nil
}
