package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/attestor/ports"
)

const AudienceClient = "attestor:client"

// DefaultClientTokenTTL bounds how long a client cookie stays valid.
const DefaultClientTokenTTL = 30 * 24 * time.Hour

var ErrInvalidClientToken = errors.New("invalid client token")

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	ttl     time.Duration
	now     func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, ttl time.Duration) *JWTTokenizer {
	if ttl <= 0 {
		ttl = DefaultClientTokenTTL
	}
	return &JWTTokenizer{signKey: signKey, ttl: ttl, now: time.Now}
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// ClientKeyToToken signs a token whose subject is clientKey
func (j *JWTTokenizer) ClientKeyToToken(clientKey string) (string, error) {
	now := j.now()
	claims := ClientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientKey,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceClient},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign client token: %w", err)
	}

	return signedToken, nil
}

// TokenToClientKey validates tokenStr and returns its subject
func (j *JWTTokenizer) TokenToClientKey(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ClientClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceClient), jwt.WithTimeFunc(j.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidClientToken, err)
	}

	claims, ok := token.Claims.(*ClientClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidClientToken
	}

	return claims.Subject, nil
}
