package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	// CodeLength is the number of digits in an email verification code.
	CodeLength = 6

	nonceBytes = 32
)

// CodeGenerator produces verification codes and opaque nonces.
type CodeGenerator struct{}

// NewCode returns CodeLength uniformly random decimal digits.
func (CodeGenerator) NewCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

// NewNonce returns 256 random bits, base64url encoded.
func (CodeGenerator) NewNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
