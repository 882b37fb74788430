package core

import "time"

// ChannelKind names a verification channel.
type ChannelKind string

const (
	ChannelPhone    ChannelKind = "phone"
	ChannelEmail    ChannelKind = "email"
	ChannelFacebook ChannelKind = "facebook"
	ChannelTwitter  ChannelKind = "twitter"
)

// Valid reports whether k is one of the known channels.
func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelPhone, ChannelEmail, ChannelFacebook, ChannelTwitter:
		return true
	}
	return false
}

// VerificationSession correlates a pending proof challenge with a client.
// For Twitter, Target holds the request token and Secret its secret.
type VerificationSession struct {
	ID             string      `json:"id"`
	Method         ChannelKind `json:"method"`
	Target         string      `json:"target"`
	Secret         string      `json:"secret"`
	DeliveryMethod string      `json:"delivery_method,omitempty"`
	Attempts       int         `json:"attempts"`
	CreatedAt      time.Time   `json:"created_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s VerificationSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
