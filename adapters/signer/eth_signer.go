package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
)

// EthSigner signs attestation data with a secp256k1 issuer key. Signatures
// are RFC 6979 deterministic, so identical input yields identical bytes.
type EthSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewEthSigner loads a hex encoded private key, with or without 0x prefix.
func NewEthSigner(privateKeyHex string) (*EthSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid issuer key: %v", core.ErrSigning, err)
	}
	return NewEthSignerFromKey(key), nil
}

func NewEthSignerFromKey(key *ecdsa.PrivateKey) *EthSigner {
	return &EthSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

var _ ports.Signer = (*EthSigner)(nil)

func (s *EthSigner) Address() string {
	return s.address.Hex()
}

// Sign returns a 65 byte [R || S || V] signature with V in {27, 28}.
func (s *EthSigner) Sign(identity string, data core.AttestationData) ([]byte, error) {
	hash, err := MessageHash(identity, data)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSigning, err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// MessageHash is the EIP-191 personal message hash of
// keccak256(identity || keccak256(canonical data)).
func MessageHash(identity string, data core.AttestationData) ([]byte, error) {
	if !common.IsHexAddress(identity) {
		return nil, core.ErrInvalidAddress
	}
	payload, err := Canonicalize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSigning, err)
	}
	dataHash := crypto.Keccak256(payload)
	inner := crypto.Keccak256(common.HexToAddress(identity).Bytes(), dataHash)
	return accounts.TextHash(inner), nil
}

// Recover returns the address that produced sig over (identity, data).
func Recover(identity string, data core.AttestationData, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	hash, err := MessageHash(identity, data)
	if err != nil {
		return common.Address{}, err
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
