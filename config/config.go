package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration. Values are layered: defaults, then
// the YAML file, then environment variables.
type Config struct {
	Environment string `yaml:"environment"`
	ListenAddr  string `yaml:"listenAddr"`
	RedisURL    string `yaml:"redisURL"`

	Log      LogConfig      `yaml:"log"`
	Issuer   IssuerConfig   `yaml:"issuer"`
	Sessions SessionConfig  `yaml:"sessions"`
	Client   ClientConfig   `yaml:"client"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	Facebook FacebookConfig `yaml:"facebook"`
	Twitter  TwitterConfig  `yaml:"twitter"`

	ProviderTimeout time.Duration `yaml:"providerTimeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type IssuerConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// PrivateKey is the hex secp256k1 key; its address is the issuer ethAddress.
	PrivateKey string `yaml:"privateKey"`
}

type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	MaxCodeAttempts int           `yaml:"maxCodeAttempts"`
}

type ClientConfig struct {
	CookieName string        `yaml:"cookieName"`
	Secure     bool          `yaml:"secure"`
	TokenTTL   time.Duration `yaml:"tokenTTL"`
	// SigningKeyPath points to a PEM P-256 key. Empty means an ephemeral key.
	SigningKeyPath string `yaml:"signingKeyPath"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"accountSID"`
	AuthToken  string `yaml:"authToken"`
	ServiceSID string `yaml:"serviceSID"`
	BaseURL    string `yaml:"baseURL"`
}

type SendGridConfig struct {
	APIKey      string `yaml:"apiKey"`
	FromAddress string `yaml:"fromAddress"`
	FromName    string `yaml:"fromName"`
	Host        string `yaml:"host"`
}

type FacebookConfig struct {
	ClientID     string `yaml:"clientID"`
	ClientSecret string `yaml:"clientSecret"`
	RedirectURL  string `yaml:"redirectURL"`
	AuthURL      string `yaml:"authURL"`
	TokenURL     string `yaml:"tokenURL"`
	GraphURL     string `yaml:"graphURL"`
}

type TwitterConfig struct {
	ConsumerKey     string `yaml:"consumerKey"`
	ConsumerSecret  string `yaml:"consumerSecret"`
	CallbackURL     string `yaml:"callbackURL"`
	RequestTokenURL string `yaml:"requestTokenURL"`
	AuthorizeURL    string `yaml:"authorizeURL"`
	AccessTokenURL  string `yaml:"accessTokenURL"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Environment: "development",
		ListenAddr:  ":5000",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Issuer: IssuerConfig{
			Name: "Origin Protocol",
			URL:  "https://www.originprotocol.com",
		},
		Sessions: SessionConfig{
			TTL:             30 * time.Minute,
			MaxCodeAttempts: 5,
		},
		Client: ClientConfig{
			CookieName: "attestor_client",
			TokenTTL:   30 * 24 * time.Hour,
		},
		SendGrid: SendGridConfig{
			FromName: "Origin Protocol",
		},
		ProviderTimeout: 10 * time.Second,
	}
}

// Load reads the YAML file at path (skipped when empty) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnvOverrides replaces fields whose environment variable is set.
func ApplyEnvOverrides(cfg *Config) error {
	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setString(&cfg.Issuer.Name, "ISSUER_NAME")
	setString(&cfg.Issuer.URL, "ISSUER_URL")
	setString(&cfg.Issuer.PrivateKey, "ATTESTATION_SIGNING_KEY")

	setString(&cfg.Client.CookieName, "CLIENT_COOKIE_NAME")
	setString(&cfg.Client.SigningKeyPath, "CLIENT_SIGNING_KEY_PATH")

	setString(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setString(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setString(&cfg.Twilio.ServiceSID, "TWILIO_VERIFY_SERVICE_SID")
	setString(&cfg.Twilio.BaseURL, "TWILIO_BASE_URL")

	setString(&cfg.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&cfg.SendGrid.FromAddress, "SENDGRID_FROM_EMAIL")
	setString(&cfg.SendGrid.FromName, "SENDGRID_FROM_NAME")

	setString(&cfg.Facebook.ClientID, "FACEBOOK_CLIENT_ID")
	setString(&cfg.Facebook.ClientSecret, "FACEBOOK_CLIENT_SECRET")
	setString(&cfg.Facebook.RedirectURL, "FACEBOOK_REDIRECT_URL")

	setString(&cfg.Twitter.ConsumerKey, "TWITTER_CONSUMER_KEY")
	setString(&cfg.Twitter.ConsumerSecret, "TWITTER_CONSUMER_SECRET")
	setString(&cfg.Twitter.CallbackURL, "TWITTER_CALLBACK_URL")

	if err := setBool(&cfg.Client.Secure, "CLIENT_COOKIE_SECURE"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Sessions.TTL, "SESSION_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.ProviderTimeout, "PROVIDER_TIMEOUT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Sessions.MaxCodeAttempts, "MAX_CODE_ATTEMPTS"); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings every deployment needs.
func (c Config) Validate() error {
	if c.Issuer.PrivateKey == "" {
		return fmt.Errorf("issuer private key is required (ATTESTATION_SIGNING_KEY)")
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.Sessions.TTL)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive, got %s", c.ProviderTimeout)
	}
	if c.Sessions.MaxCodeAttempts < 1 {
		return fmt.Errorf("max code attempts must be at least 1, got %d", c.Sessions.MaxCodeAttempts)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
