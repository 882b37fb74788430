package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"go.uber.org/zap"
)

// EmailChannel verifies email addresses with self-issued codes.
type EmailChannel struct {
	validator *Validator
	codes     CodeGenerator
	sender    ports.EmailSender
	slot      *SessionSlot
	timeout   time.Duration
	logger    *zap.Logger
}

func NewEmailChannel(validator *Validator, sender ports.EmailSender, slot *SessionSlot, timeout time.Duration, logger *zap.Logger) *EmailChannel {
	return &EmailChannel{
		validator: validator,
		sender:    sender,
		slot:      slot,
		timeout:   timeout,
		logger:    logger.Named("email"),
	}
}

func (c *EmailChannel) Kind() core.ChannelKind { return core.ChannelEmail }

func (c *EmailChannel) Initiate(ctx context.Context, clientKey string, req core.InitiateRequest) (core.InitiateResult, error) {
	email, err := c.validator.ValidateEmail(req.Email)
	if err != nil {
		return core.InitiateResult{}, err
	}

	code, err := c.codes.NewCode()
	if err != nil {
		return core.InitiateResult{}, err
	}

	// Send first so a failed delivery leaves no session behind.
	sctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.sender.Send(sctx, email, code); err != nil {
		c.logger.Warn("Failed to send verification email", zap.Error(err))
		return core.InitiateResult{}, providerError(err, core.ErrEmailSendFailed)
	}

	if _, err := c.slot.Open(ctx, clientKey, core.ChannelEmail, email, code, ""); err != nil {
		return core.InitiateResult{}, err
	}
	return core.InitiateResult{}, nil
}

func (c *EmailChannel) Confirm(ctx context.Context, clientKey string, req core.ConfirmRequest) (core.Verification, error) {
	email, err := c.validator.ValidateEmail(req.Email)
	if err != nil {
		return core.Verification{}, err
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.Verification{}, fmt.Errorf("empty code: %w", core.ErrInvalidInput)
	}

	session, err := c.slot.Take(ctx, clientKey, core.ChannelEmail)
	if err != nil {
		return core.Verification{}, err
	}

	emailOK := subtle.ConstantTimeCompare([]byte(session.Target), []byte(email)) == 1
	codeOK := subtle.ConstantTimeCompare([]byte(session.Secret), []byte(code)) == 1
	if !emailOK || !codeOK {
		if err := c.slot.Reject(ctx, clientKey, session); err != nil {
			c.logger.Error("Failed to restore email session", zap.Error(err))
		}
		return core.Verification{}, core.ErrCodeInvalid
	}

	return core.Verification{
		Method: core.MethodEmail,
		Email:  &core.Verified{Verified: true},
	}, nil
}
