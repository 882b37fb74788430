package ports

import "github.com/layer-3/attestor/core"

// Signer holds the issuer key.
type Signer interface {
	// Address is the issuer's checksummed Ethereum address.
	Address() string
	// Sign returns the raw signature over data bound to identity.
	Sign(identity string, data core.AttestationData) ([]byte, error)
}
