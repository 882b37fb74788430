package service

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/layer-3/attestor/core"
)

// CanonicalPhone is a validated phone number split into its country calling
// code and national number, both digits only.
type CanonicalPhone struct {
	CountryCode string
	Number      string
}

// E164 renders the number as +<country code><number>.
func (p CanonicalPhone) E164() string {
	return "+" + p.CountryCode + p.Number
}

// Validator normalizes identity addresses, phone numbers and emails.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateAddress returns the lowercase form of a 0x-prefixed 20 byte hex address.
func (v *Validator) ValidateAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return "", core.ErrInvalidAddress
	}
	if !common.IsHexAddress(raw) {
		return "", core.ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(raw).Hex()), nil
}

func (v *Validator) ValidatePhone(countryCode, number string) (CanonicalPhone, error) {
	cc := strings.TrimPrefix(stripPhoneSeparators(countryCode), "+")
	n := stripPhoneSeparators(number)

	if !isDigits(cc) || len(cc) > 3 {
		return CanonicalPhone{}, fmt.Errorf("country code %q: %w", countryCode, core.ErrInvalidPhone)
	}
	if !isDigits(n) || len(n) < 4 || len(n) > 15 {
		return CanonicalPhone{}, fmt.Errorf("number %q: %w", number, core.ErrInvalidPhone)
	}
	return CanonicalPhone{CountryCode: cc, Number: n}, nil
}

// ValidateEmail returns the trimmed, lowercase address.
func (v *Validator) ValidateEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", core.ErrInvalidEmail
	}
	if err := v.validate.Var(email, "email"); err != nil {
		return "", fmt.Errorf("%q: %w", raw, core.ErrInvalidEmail)
	}
	return email, nil
}

func stripPhoneSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
