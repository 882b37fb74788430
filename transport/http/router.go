package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"github.com/layer-3/attestor/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps groups what SetupRouter needs.
type RouterDeps struct {
	Service   *service.AttestationService
	Tokenizer ports.Tokenizer
	NewNonce  NonceFunc
	Client    ClientOptions
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(deps.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	handlers := NewAttestationHandlers(deps.Service, deps.Logger)

	api := router.Group("/api/attestations")
	api.Use(ClientMiddleware(deps.Tokenizer, deps.NewNonce, deps.Client, deps.Logger))
	{
		api.POST("/phone/generate-code", handlers.PhoneGenerateCode)
		api.POST("/phone/verify", handlers.PhoneVerify)
		api.POST("/email/generate-code", handlers.EmailGenerateCode)
		api.POST("/email/verify", handlers.EmailVerify)
		api.GET("/facebook/auth-url", handlers.AuthURL(core.ChannelFacebook))
		api.POST("/facebook/verify", handlers.FacebookVerify)
		api.GET("/twitter/auth-url", handlers.AuthURL(core.ChannelTwitter))
		api.POST("/twitter/verify", handlers.TwitterVerify)
	}

	return router
}
