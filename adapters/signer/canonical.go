package signer

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Canonicalize renders v in the RFC 8785 JSON Canonicalization Scheme:
// compact, object keys sorted at every level, minimal string escaping and
// ES6 number formatting.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}

	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize: %w", err)
	}
	return out, nil
}
