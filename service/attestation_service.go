package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/metrics"
	"github.com/layer-3/attestor/ports"
	"go.uber.org/zap"
)

// AttestationService handles the initiate/confirm lifecycle and issues
// signed attestations.
type AttestationService struct {
	registry  *Registry
	validator *Validator
	builder   *Builder
	signer    ports.Signer
	eventPub  ports.EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger

	now func() time.Time
}

// NewAttestationService creates a new attestation service. eventPub may be nil.
func NewAttestationService(
	registry *Registry,
	validator *Validator,
	builder *Builder,
	signer ports.Signer,
	eventPub ports.EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AttestationService {
	return &AttestationService{
		registry:  registry,
		validator: validator,
		builder:   builder,
		signer:    signer,
		eventPub:  eventPub,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Initiate starts a verification on the given channel.
func (s *AttestationService) Initiate(ctx context.Context, kind core.ChannelKind, clientKey string, req core.InitiateRequest) (core.InitiateResult, error) {
	ch, err := s.registry.Get(kind)
	if err != nil {
		return core.InitiateResult{}, err
	}

	result, err := ch.Initiate(ctx, clientKey, req)
	s.metrics.Initiations.WithLabelValues(string(kind), resultLabel(err)).Inc()
	if err != nil {
		s.logger.Info("Verification initiate failed",
			zap.String("channel", string(kind)),
			zap.Error(err))
		return core.InitiateResult{}, err
	}
	return result, nil
}

// Confirm checks the proof on the given channel and, on success, returns a
// signed attestation binding the verified identifier to identity.
func (s *AttestationService) Confirm(ctx context.Context, kind core.ChannelKind, clientKey string, identity string, req core.ConfirmRequest) (*core.Attestation, error) {
	ch, err := s.registry.Get(kind)
	if err != nil {
		return nil, err
	}

	// Validate before touching the session so a typo does not burn it.
	address, err := s.validator.ValidateAddress(identity)
	if err != nil {
		s.metrics.Confirmations.WithLabelValues(string(kind), resultLabel(err)).Inc()
		return nil, err
	}

	verification, err := ch.Confirm(ctx, clientKey, req)
	s.metrics.Confirmations.WithLabelValues(string(kind), resultLabel(err)).Inc()
	if err != nil {
		s.logger.Info("Verification confirm failed",
			zap.String("channel", string(kind)),
			zap.Error(err))
		return nil, err
	}

	attestation, err := s.Issue(address, verification)
	if err != nil {
		return nil, err
	}
	s.metrics.Issued.WithLabelValues(string(kind), verification.Method).Inc()

	s.publishIssued(ctx, kind, address, verification.Method, attestation.Data.IssueDate)

	s.logger.Info("Attestation issued",
		zap.String("channel", string(kind)),
		zap.String("method", verification.Method),
		zap.String("identity", address))

	return attestation, nil
}

// Issue builds and signs an attestation for an already verified claim.
func (s *AttestationService) Issue(identity string, verification core.Verification) (*core.Attestation, error) {
	data := s.builder.Build(verification)

	start := time.Now()
	sig, err := s.signer.Sign(identity, data)
	s.metrics.SignDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("Failed to sign attestation", zap.Error(err))
		if !errors.Is(err, core.ErrSigning) {
			err = fmt.Errorf("%w: %v", core.ErrSigning, err)
		}
		return nil, err
	}

	encoded := hexutil.Encode(sig)
	if len(encoded) != core.SignatureHexLength {
		s.logger.Error("Signature has unexpected length", zap.Int("length", len(encoded)))
		return nil, fmt.Errorf("%w: signature length %d", core.ErrSigning, len(encoded))
	}

	return &core.Attestation{
		SchemaID: core.SchemaID,
		Data:     data,
		Signature: core.Signature{
			Bytes:   encoded,
			Version: core.SignatureVersion,
		},
	}, nil
}

func (s *AttestationService) publishIssued(ctx context.Context, kind core.ChannelKind, identity, method, issueDate string) {
	if s.eventPub == nil {
		return
	}
	event := core.IssuedEvent{
		Identity:  identity,
		Channel:   kind,
		Method:    method,
		IssueDate: issueDate,
		IssuedAt:  s.now(),
	}
	// Best effort: the attestation is already signed.
	if err := s.eventPub.PublishIssued(ctx, event); err != nil {
		s.logger.Warn("Failed to publish issued event", zap.Error(err))
	}
}

// resultLabel maps an error onto a low-cardinality metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, core.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, core.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, core.ErrCodeInvalid):
		return "code_invalid"
	case errors.Is(err, core.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, core.ErrOAuthExchangeFailed):
		return "oauth_exchange_failed"
	case errors.Is(err, core.ErrProfileFetchFailed):
		return "profile_fetch_failed"
	case errors.Is(err, core.ErrEmailSendFailed):
		return "email_send_failed"
	default:
		return "error"
	}
}
