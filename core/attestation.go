package core

import "time"

const (
	// SchemaID identifies the JSON shape of Attestation.
	SchemaID = "https://schema.originprotocol.com/attestation_1.0.0.json"

	// SignatureVersion is written into every signature block.
	SignatureVersion = "1.0.0"

	// SignatureHexLength is the length of Signature.Bytes: 0x followed by
	// a 65 byte secp256k1 signature.
	SignatureHexLength = 132
)

// Verification method tags used as the single key of VerificationMethod.
const (
	MethodSMS   = "sms"
	MethodCall  = "call"
	MethodEmail = "email"
	MethodOAuth = "oAuth"
)

// Site names for account based channels.
const (
	SiteFacebook = "facebook.com"
	SiteTwitter  = "twitter.com"
)

// Issuer is the fixed party whose key signs every attestation.
type Issuer struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	EthAddress string `json:"ethAddress"`
}

// Attestation is the signed artifact handed back to the client.
type Attestation struct {
	SchemaID  string          `json:"schemaId"`
	Data      AttestationData `json:"data"`
	Signature Signature       `json:"signature"`
}

// AttestationData is the signed part of an attestation.
type AttestationData struct {
	Issuer      Issuer `json:"issuer"`
	IssueDate   string `json:"issueDate"`
	Attestation Claim  `json:"attestation"`
}

type Signature struct {
	Bytes   string `json:"bytes"`
	Version string `json:"version"`
}

// Claim holds exactly one verification method and the matching subject block.
type Claim struct {
	VerificationMethod map[string]bool `json:"verificationMethod"`
	Phone              *Verified       `json:"phone,omitempty"`
	Email              *Verified       `json:"email,omitempty"`
	Site               *Site           `json:"site,omitempty"`
}

type Verified struct {
	Verified bool `json:"verified"`
}

type Site struct {
	Verified bool    `json:"verified"`
	SiteName string  `json:"siteName"`
	UserID   *UserID `json:"userId,omitempty"`
}

type UserID struct {
	Raw string `json:"raw"`
}

// Verification is what a channel reports after a successful confirm.
type Verification struct {
	Method string // one of the Method* tags
	Phone  *Verified
	Email  *Verified
	Site   *Site
}

// OAuthProfile is the minimal account information an OAuth exchange yields.
type OAuthProfile struct {
	Name       string
	ScreenName string
}

// RequestToken is a temporary OAuth1 credential pair.
type RequestToken struct {
	Token  string
	Secret string
}

// InitiateRequest carries the channel specific inputs of an initiate call.
type InitiateRequest struct {
	CountryCode    string
	Phone          string
	DeliveryMethod string
	Email          string
}

// InitiateResult is empty for possession channels; OAuth channels return
// the provider authorization URL.
type InitiateResult struct {
	URL string `json:"url,omitempty"`
}

// ConfirmRequest carries the channel specific proof of a confirm call.
type ConfirmRequest struct {
	CountryCode string
	Phone       string
	Email       string
	Code        string // SMS/email code, OAuth code or OAuth1 verifier
}

// IssuedEvent is published after an attestation has been signed.
type IssuedEvent struct {
	Identity  string      `json:"identity"`
	Channel   ChannelKind `json:"channel"`
	Method    string      `json:"method"`
	IssueDate string      `json:"issue_date"`
	IssuedAt  time.Time   `json:"issued_at"`
}
