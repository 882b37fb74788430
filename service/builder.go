package service

import (
	"time"

	"github.com/layer-3/attestor/core"
)

// Builder assembles the unsigned part of an attestation.
type Builder struct {
	issuer core.Issuer
	now    func() time.Time
}

func NewBuilder(issuer core.Issuer, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{issuer: issuer, now: now}
}

// Build nests the verified claim under the fixed issuer block and stamps the
// issue date. It does not mutate v.
func (b *Builder) Build(v core.Verification) core.AttestationData {
	return core.AttestationData{
		Issuer:    b.issuer,
		IssueDate: b.now().UTC().Format(time.RFC3339),
		Attestation: core.Claim{
			VerificationMethod: map[string]bool{v.Method: true},
			Phone:              v.Phone,
			Email:              v.Email,
			Site:               v.Site,
		},
	}
}
