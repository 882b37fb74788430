package ports

import (
	"context"

	"github.com/layer-3/attestor/core"
)

// SMSProvider delivers and checks phone verification codes.
type SMSProvider interface {
	// StartVerification sends a code over channel ("sms" or "call") and
	// returns the provider's verification id.
	StartVerification(ctx context.Context, phone string, channel string) (string, error)
	// CheckVerification reports whether code matches the verification.
	CheckVerification(ctx context.Context, verificationID string, code string) (bool, error)
}

// EmailSender delivers email verification codes.
type EmailSender interface {
	Send(ctx context.Context, address string, code string) error
}

// FacebookOAuth performs the OAuth2 authorization code flow against Facebook.
type FacebookOAuth interface {
	AuthURL() string
	Exchange(ctx context.Context, code string) (accessToken string, err error)
	Profile(ctx context.Context, accessToken string) (core.OAuthProfile, error)
}

// TwitterOAuth performs the three-legged OAuth1 flow against Twitter.
type TwitterOAuth interface {
	RequestToken(ctx context.Context) (core.RequestToken, error)
	AuthURL(requestToken string) (string, error)
	// AccessToken exchanges the verifier and returns the account's screen name.
	AccessToken(ctx context.Context, token core.RequestToken, verifier string) (core.OAuthProfile, error)
}

// Channel is one verification method.
type Channel interface {
	Kind() core.ChannelKind
	Initiate(ctx context.Context, clientKey string, req core.InitiateRequest) (core.InitiateResult, error)
	Confirm(ctx context.Context, clientKey string, req core.ConfirmRequest) (core.Verification, error)
}
