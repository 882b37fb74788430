package ports

// Tokenizer converts between client correlation keys and the signed token
// stored in the client's cookie.
type Tokenizer interface {
	ClientKeyToToken(clientKey string) (string, error)
	TokenToClientKey(token string) (string, error)
}
