package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ClientClaims identify a browser client across the two legs of a
// verification. The subject is the client key.
type ClientClaims struct {
	jwt.RegisteredClaims
}
