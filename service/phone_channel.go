package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"go.uber.org/zap"
)

// PhoneChannel verifies phone numbers through an SMS provider that
// generates and checks the code itself.
type PhoneChannel struct {
	validator *Validator
	sms       ports.SMSProvider
	slot      *SessionSlot
	timeout   time.Duration
	logger    *zap.Logger
}

func NewPhoneChannel(validator *Validator, sms ports.SMSProvider, slot *SessionSlot, timeout time.Duration, logger *zap.Logger) *PhoneChannel {
	return &PhoneChannel{
		validator: validator,
		sms:       sms,
		slot:      slot,
		timeout:   timeout,
		logger:    logger.Named("phone"),
	}
}

func (c *PhoneChannel) Kind() core.ChannelKind { return core.ChannelPhone }

func (c *PhoneChannel) Initiate(ctx context.Context, clientKey string, req core.InitiateRequest) (core.InitiateResult, error) {
	phone, err := c.validator.ValidatePhone(req.CountryCode, req.Phone)
	if err != nil {
		return core.InitiateResult{}, err
	}

	delivery := strings.ToLower(strings.TrimSpace(req.DeliveryMethod))
	switch delivery {
	case "":
		delivery = core.MethodSMS
	case core.MethodSMS, core.MethodCall:
	default:
		return core.InitiateResult{}, fmt.Errorf("delivery method %q: %w", req.DeliveryMethod, core.ErrInvalidInput)
	}

	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	verificationID, err := c.sms.StartVerification(pctx, phone.E164(), delivery)
	if err != nil {
		c.logger.Warn("Failed to start phone verification", zap.String("delivery", delivery), zap.Error(err))
		return core.InitiateResult{}, providerError(err, core.ErrProviderUnavailable)
	}

	if _, err := c.slot.Open(ctx, clientKey, core.ChannelPhone, phone.E164(), verificationID, delivery); err != nil {
		return core.InitiateResult{}, err
	}

	c.logger.Debug("Phone verification started", zap.String("delivery", delivery))
	return core.InitiateResult{}, nil
}

func (c *PhoneChannel) Confirm(ctx context.Context, clientKey string, req core.ConfirmRequest) (core.Verification, error) {
	phone, err := c.validator.ValidatePhone(req.CountryCode, req.Phone)
	if err != nil {
		return core.Verification{}, err
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.Verification{}, fmt.Errorf("empty code: %w", core.ErrInvalidInput)
	}

	session, err := c.slot.Take(ctx, clientKey, core.ChannelPhone)
	if err != nil {
		return core.Verification{}, err
	}

	if session.Target != phone.E164() {
		if err := c.slot.Reject(ctx, clientKey, session); err != nil {
			c.logger.Error("Failed to restore phone session", zap.Error(err))
		}
		return core.Verification{}, fmt.Errorf("phone does not match pending verification: %w", core.ErrCodeInvalid)
	}

	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ok, err := c.sms.CheckVerification(pctx, session.Secret, code)
	if err != nil {
		if rerr := c.slot.Release(ctx, clientKey, session); rerr != nil {
			c.logger.Error("Failed to restore phone session", zap.Error(rerr))
		}
		return core.Verification{}, providerError(err, core.ErrProviderUnavailable)
	}
	if !ok {
		if err := c.slot.Reject(ctx, clientKey, session); err != nil {
			c.logger.Error("Failed to restore phone session", zap.Error(err))
		}
		return core.Verification{}, core.ErrCodeInvalid
	}

	method := session.DeliveryMethod
	if method == "" {
		method = core.MethodSMS
	}
	return core.Verification{
		Method: method,
		Phone:  &core.Verified{Verified: true},
	}, nil
}
