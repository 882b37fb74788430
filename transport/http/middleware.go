package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/attestor/ports"
	"go.uber.org/zap"
)

const clientKeyContextKey = "clientKey"

// ClientOptions control the correlation cookie.
type ClientOptions struct {
	CookieName string
	Secure     bool
	MaxAge     int
}

// NonceFunc returns a fresh unguessable client key.
type NonceFunc func() (string, error)

// ClientMiddleware makes sure every request carries a client key. The key
// lives in a signed cookie; a missing or invalid cookie gets a new key.
func ClientMiddleware(tokenizer ports.Tokenizer, newNonce NonceFunc, opts ClientOptions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(opts.CookieName); err == nil && cookie != "" {
			if clientKey, err := tokenizer.TokenToClientKey(cookie); err == nil {
				c.Set(clientKeyContextKey, clientKey)
				c.Next()
				return
			}
		}

		clientKey, err := newNonce()
		if err != nil {
			logger.Error("Failed to generate client key", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"errors": []string{"internal error"}})
			return
		}
		token, err := tokenizer.ClientKeyToToken(clientKey)
		if err != nil {
			logger.Error("Failed to sign client token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"errors": []string{"internal error"}})
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(opts.CookieName, token, opts.MaxAge, "/", "", opts.Secure, true)
		c.Set(clientKeyContextKey, clientKey)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}
