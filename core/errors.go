package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidAddress = fmt.Errorf("invalid identity address: %w", ErrInvalidInput)
	ErrInvalidPhone   = fmt.Errorf("invalid phone number: %w", ErrInvalidInput)
	ErrInvalidEmail   = fmt.Errorf("invalid email address: %w", ErrInvalidInput)
	ErrUnknownChannel = fmt.Errorf("unknown verification channel: %w", ErrInvalidInput)

	ErrSessionNotFound = errors.New("no pending verification")
	ErrSessionExpired  = errors.New("verification has expired")
	ErrCodeInvalid     = errors.New("verification code is invalid")

	ErrProviderUnavailable = errors.New("verification provider unavailable")
	ErrOAuthExchangeFailed = errors.New("oauth exchange failed")
	ErrProfileFetchFailed  = errors.New("profile fetch failed")
	ErrEmailSendFailed     = errors.New("could not send verification email")

	// ErrSigning means the issuer key is unusable. Requests fail closed.
	ErrSigning = errors.New("attestation signing failed")
)

// IsRetryable reports whether err is a transient upstream failure that the
// caller may simply try again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
