package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dghubble/oauth1"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/layer-3/attestor/adapters/email"
	"github.com/layer-3/attestor/adapters/events"
	"github.com/layer-3/attestor/adapters/oauth"
	"github.com/layer-3/attestor/adapters/signer"
	"github.com/layer-3/attestor/adapters/sms"
	"github.com/layer-3/attestor/adapters/store"
	"github.com/layer-3/attestor/adapters/tokenizer"
	"github.com/layer-3/attestor/config"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/logging"
	"github.com/layer-3/attestor/metrics"
	"github.com/layer-3/attestor/ports"
	"github.com/layer-3/attestor/service"
	"github.com/layer-3/attestor/transport/http"
)

func main() {
	configPath := flag.String("config", os.Getenv("ATTESTOR_CONFIG"), "path to YAML config")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Attestor stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuerSigner, err := signer.NewEthSigner(cfg.Issuer.PrivateKey)
	if err != nil {
		return err
	}

	clientKey, err := loadClientKey(cfg.Client.SigningKeyPath, logger)
	if err != nil {
		return err
	}

	sessions, publisher, closeBackends, err := setupBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackends()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	validator := service.NewValidator()
	slot := service.NewSessionSlot(sessions, cfg.Sessions.TTL, cfg.Sessions.MaxCodeAttempts, time.Now)

	registry := service.NewRegistry(
		service.NewPhoneChannel(validator, newTwilio(cfg), slot, cfg.ProviderTimeout, logger),
		service.NewEmailChannel(validator, newEmailSender(cfg, logger), slot, cfg.ProviderTimeout, logger),
		service.NewFacebookChannel(newFacebook(cfg), cfg.ProviderTimeout, logger),
		service.NewTwitterChannel(newTwitter(cfg), slot, cfg.ProviderTimeout, logger),
	)

	issuer := core.Issuer{
		Name:       cfg.Issuer.Name,
		URL:        cfg.Issuer.URL,
		EthAddress: issuerSigner.Address(),
	}
	attestationService := service.NewAttestationService(
		registry,
		validator,
		service.NewBuilder(issuer, time.Now),
		issuerSigner,
		events.NewWatermillPublisher(publisher),
		m,
		logger,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	codes := service.CodeGenerator{}
	router := http.SetupRouter(http.RouterDeps{
		Service:   attestationService,
		Tokenizer: tokenizer.NewJWTTokenizer(clientKey, cfg.Client.TokenTTL),
		NewNonce:  codes.NewNonce,
		Client: http.ClientOptions{
			CookieName: cfg.Client.CookieName,
			Secure:     cfg.Client.Secure,
			MaxAge:     int(cfg.Client.TokenTTL.Seconds()),
		},
		Gatherer: reg,
		Logger:   logger,
	})

	server := &nethttp.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Attestor listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("issuer", issuer.EthAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// setupBackends uses Redis for sessions and events when configured, and an
// in-process store and channel otherwise.
func setupBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (ports.SessionStore, message.Publisher, func(), error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, sessions are kept in memory")
		memory := store.NewMemoryStore()
		go memory.RunSweeper(ctx, time.Minute)
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return memory, pubSub, func() { _ = pubSub.Close() }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to reach Redis: %w", err)
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	closeAll := func() {
		_ = publisher.Close()
		_ = redisClient.Close()
	}
	return store.NewRedisStore(redisClient), publisher, closeAll, nil
}

func loadClientKey(path string, logger *zap.Logger) (*ecdsa.PrivateKey, error) {
	if path == "" {
		logger.Warn("No client signing key configured, client cookies will not survive a restart")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client signing key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client signing key: %w", err)
	}
	return key, nil
}

func newTwilio(cfg config.Config) *sms.TwilioVerify {
	twilio := sms.NewTwilioVerify(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.ServiceSID, cfg.ProviderTimeout)
	if cfg.Twilio.BaseURL != "" {
		twilio.BaseURL = cfg.Twilio.BaseURL
	}
	return twilio
}

func newEmailSender(cfg config.Config, logger *zap.Logger) ports.EmailSender {
	if cfg.SendGrid.APIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, verification emails are only logged")
		return email.NewLogSender(logger)
	}
	sender := email.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromAddress, cfg.SendGrid.FromName)
	if cfg.SendGrid.Host != "" {
		sender.Host = cfg.SendGrid.Host
	}
	return sender
}

func newFacebook(cfg config.Config) *oauth.Facebook {
	fb := oauth.NewFacebook(cfg.Facebook.ClientID, cfg.Facebook.ClientSecret, cfg.Facebook.RedirectURL, cfg.ProviderTimeout)
	if cfg.Facebook.AuthURL != "" && cfg.Facebook.TokenURL != "" {
		fb.SetOAuthEndpoint(oauth2.Endpoint{
			AuthURL:  cfg.Facebook.AuthURL,
			TokenURL: cfg.Facebook.TokenURL,
		})
	}
	if cfg.Facebook.GraphURL != "" {
		fb.GraphURL = cfg.Facebook.GraphURL
	}
	return fb
}

func newTwitter(cfg config.Config) *oauth.Twitter {
	tw := oauth.NewTwitter(cfg.Twitter.ConsumerKey, cfg.Twitter.ConsumerSecret, cfg.Twitter.CallbackURL, cfg.ProviderTimeout)
	if cfg.Twitter.RequestTokenURL != "" && cfg.Twitter.AuthorizeURL != "" && cfg.Twitter.AccessTokenURL != "" {
		tw.SetEndpoint(oauth1.Endpoint{
			RequestTokenURL: cfg.Twitter.RequestTokenURL,
			AuthorizeURL:    cfg.Twitter.AuthorizeURL,
			AccessTokenURL:  cfg.Twitter.AccessTokenURL,
		})
	}
	return tw
}
