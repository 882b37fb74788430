package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
)

type slotKey struct {
	clientKey string
	method    core.ChannelKind
}

type entry struct {
	session  core.VerificationSession
	deadline time.Time
}

// MemoryStore is an in-memory implementation of the SessionStore interface.
// Expired entries are dropped lazily on access and by Sweep.
type MemoryStore struct {
	sessions map[slotKey]entry
	mu       sync.Mutex
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[slotKey]entry),
		now:      time.Now,
	}
}

var _ ports.SessionStore = (*MemoryStore)(nil)

// Put overwrites the slot
func (s *MemoryStore) Put(ctx context.Context, clientKey string, method core.ChannelKind, session core.VerificationSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[slotKey{clientKey, method}] = entry{
		session:  session,
		deadline: s.now().Add(ttl),
	}
	return nil
}

// Take removes and returns the slot's session
func (s *MemoryStore) Take(ctx context.Context, clientKey string, method core.ChannelKind) (core.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{clientKey, method}
	e, ok := s.sessions[key]
	if !ok {
		return core.VerificationSession{}, core.ErrSessionNotFound
	}
	delete(s.sessions, key)

	if !s.now().Before(e.deadline) {
		return core.VerificationSession{}, core.ErrSessionExpired
	}
	return e.session, nil
}

// Restore puts session back if the slot is free and the session is still live
func (s *MemoryStore) Restore(ctx context.Context, clientKey string, method core.ChannelKind, session core.VerificationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if session.Expired(now) {
		return nil
	}
	key := slotKey{clientKey, method}
	if e, ok := s.sessions[key]; ok && now.Before(e.deadline) {
		return nil
	}
	s.sessions[key] = entry{session: session, deadline: session.ExpiresAt}
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.sessions {
		if !now.Before(e.deadline) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
