package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
)

// SessionSlot applies the session lifetime and retry budget on top of a
// SessionStore.
type SessionSlot struct {
	store       ports.SessionStore
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewSessionSlot(store ports.SessionStore, ttl time.Duration, maxAttempts int, now func() time.Time) *SessionSlot {
	if now == nil {
		now = time.Now
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &SessionSlot{
		store:       store,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         now,
	}
}

// Open stores a fresh session, replacing any pending one for the same slot.
func (s *SessionSlot) Open(ctx context.Context, clientKey string, method core.ChannelKind, target, secret, deliveryMethod string) (core.VerificationSession, error) {
	now := s.now()
	session := core.VerificationSession{
		ID:             uuid.New().String(),
		Method:         method,
		Target:         target,
		Secret:         secret,
		DeliveryMethod: deliveryMethod,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, clientKey, method, session, s.ttl); err != nil {
		return core.VerificationSession{}, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Take consumes the pending session.
func (s *SessionSlot) Take(ctx context.Context, clientKey string, method core.ChannelKind) (core.VerificationSession, error) {
	session, err := s.store.Take(ctx, clientKey, method)
	if err != nil {
		return core.VerificationSession{}, err
	}
	if session.Expired(s.now()) {
		return core.VerificationSession{}, core.ErrSessionExpired
	}
	return session, nil
}

// Release hands an untouched session back after a transient failure.
func (s *SessionSlot) Release(ctx context.Context, clientKey string, session core.VerificationSession) error {
	return s.store.Restore(ctx, clientKey, session.Method, session)
}

// Reject counts a wrong proof against the session. The session is restored
// while attempts remain; the attempt that exhausts the budget discards it.
func (s *SessionSlot) Reject(ctx context.Context, clientKey string, session core.VerificationSession) error {
	session.Attempts++
	if session.Attempts >= s.maxAttempts {
		return nil
	}
	return s.store.Restore(ctx, clientKey, session.Method, session)
}

// providerError keeps core errors as they are and turns deadlines and
// cancellations into core.ErrProviderUnavailable. Anything else is wrapped
// with fallback.
func providerError(err error, fallback error) error {
	switch {
	case errors.Is(err, core.ErrProviderUnavailable),
		errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrOAuthExchangeFailed),
		errors.Is(err, core.ErrProfileFetchFailed),
		errors.Is(err, core.ErrEmailSendFailed),
		errors.Is(err, core.ErrCodeInvalid):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", fallback, err)
	}
}
