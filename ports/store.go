package ports

import (
	"context"
	"time"

	"github.com/layer-3/attestor/core"
)

// SessionStore holds at most one pending VerificationSession per
// (clientKey, method) slot.
type SessionStore interface {
	// Put overwrites whatever the slot currently holds.
	Put(ctx context.Context, clientKey string, method core.ChannelKind, session core.VerificationSession, ttl time.Duration) error
	// Take atomically reads and removes the slot. It returns
	// core.ErrSessionNotFound or core.ErrSessionExpired when nothing usable is stored.
	Take(ctx context.Context, clientKey string, method core.ChannelKind) (core.VerificationSession, error)
	// Restore puts a previously taken session back, unless the slot has been
	// filled in the meantime or the session has expired.
	Restore(ctx context.Context, clientKey string, method core.ChannelKind, session core.VerificationSession) error
}
