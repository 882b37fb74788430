package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/dghubble/oauth1/twitter"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
)

// Twitter runs the OAuth1 request token / access token legs.
type Twitter struct {
	config  *oauth1.Config
	timeout time.Duration
}

func NewTwitter(consumerKey, consumerSecret, callbackURL string, timeout time.Duration) *Twitter {
	return &Twitter{
		config: &oauth1.Config{
			ConsumerKey:    consumerKey,
			ConsumerSecret: consumerSecret,
			CallbackURL:    callbackURL,
			Endpoint:       twitter.AuthorizeEndpoint,
			HTTPClient:     &http.Client{Timeout: timeout},
		},
		timeout: timeout,
	}
}

var _ ports.TwitterOAuth = (*Twitter)(nil)

// SetEndpoint overrides the provider URLs, mainly for tests.
func (t *Twitter) SetEndpoint(endpoint oauth1.Endpoint) {
	t.config.Endpoint = endpoint
}

// contextTransport binds every outgoing request to ctx. oauth1.Config.RequestToken
// builds its request without a context.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (c contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return c.base.RoundTrip(req.WithContext(c.ctx))
}

func (t *Twitter) RequestToken(ctx context.Context) (core.RequestToken, error) {
	config := *t.config
	config.HTTPClient = &http.Client{
		Timeout:   t.timeout,
		Transport: contextTransport{ctx: ctx, base: http.DefaultTransport},
	}

	token, secret, err := config.RequestToken()
	if err != nil {
		if ctx.Err() != nil || isTransportError(err) {
			return core.RequestToken{}, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
		}
		return core.RequestToken{}, fmt.Errorf("%w: %v", core.ErrOAuthExchangeFailed, err)
	}
	return core.RequestToken{Token: token, Secret: secret}, nil
}

func (t *Twitter) AuthURL(requestToken string) (string, error) {
	u, err := t.config.AuthorizationURL(requestToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrOAuthExchangeFailed, err)
	}
	return u.String(), nil
}

// AccessToken signs the access token request with the request token pair
// and reads screen_name from the form encoded response.
func (t *Twitter) AccessToken(ctx context.Context, token core.RequestToken, verifier string) (core.OAuthProfile, error) {
	client := t.config.Client(ctx, oauth1.NewToken(token.Token, token.Secret))
	client.Timeout = t.timeout

	form := url.Values{}
	form.Set("oauth_verifier", verifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.Endpoint.AccessTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return core.OAuthProfile{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := client.Do(req)
	if err != nil {
		return core.OAuthProfile{}, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return core.OAuthProfile{}, fmt.Errorf("%w: failed read response: %v", core.ErrOAuthExchangeFailed, err)
	}
	if res.StatusCode >= 500 {
		return core.OAuthProfile{}, fmt.Errorf("%w: access token status %d", core.ErrProviderUnavailable, res.StatusCode)
	}
	if res.StatusCode/100 != 2 {
		return core.OAuthProfile{}, fmt.Errorf("%w: access token status %d", core.ErrOAuthExchangeFailed, res.StatusCode)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return core.OAuthProfile{}, fmt.Errorf("%w: malformed response: %v", core.ErrOAuthExchangeFailed, err)
	}
	screenName := values.Get("screen_name")
	if screenName == "" {
		return core.OAuthProfile{}, fmt.Errorf("%w: response missing screen_name", core.ErrOAuthExchangeFailed)
	}
	return core.OAuthProfile{ScreenName: screenName}, nil
}
