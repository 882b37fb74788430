package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const DefaultGraphURL = "https://graph.facebook.com"

// Facebook exchanges authorization codes and reads the account's display name.
type Facebook struct {
	// GraphURL is the base of the Graph API. Can be overridden for testing.
	GraphURL string

	oauthConfig oauth2.Config
	client      *http.Client
}

func NewFacebook(clientID, clientSecret, redirectURL string, timeout time.Duration) *Facebook {
	endpoint := facebook.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &Facebook{
		GraphURL: DefaultGraphURL,
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoint,
		},
		client: &http.Client{Timeout: timeout},
	}
}

var _ ports.FacebookOAuth = (*Facebook)(nil)

// SetOAuthEndpoint overrides the authorization and token URLs.
func (f *Facebook) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	if endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	f.oauthConfig.Endpoint = endpoint
}

func (f *Facebook) SetHTTPClient(client *http.Client) {
	f.client = client
}

// AuthURL carries only the client id and redirect URI; the returned code
// is all the state the flow needs.
func (f *Facebook) AuthURL() string {
	return f.oauthConfig.AuthCodeURL("")
}

func (f *Facebook) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	token, err := f.oauthConfig.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		switch {
		case ctx.Err() != nil:
			return "", fmt.Errorf("%w: %v", core.ErrProviderUnavailable, ctx.Err())
		case errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500:
			return "", fmt.Errorf("%w: token endpoint status %d", core.ErrProviderUnavailable, retrieveErr.Response.StatusCode)
		case isTransportError(err):
			return "", fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
		default:
			return "", fmt.Errorf("%w: %v", core.ErrOAuthExchangeFailed, err)
		}
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", core.ErrOAuthExchangeFailed)
	}
	return token.AccessToken, nil
}

type facebookProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (f *Facebook) Profile(ctx context.Context, accessToken string) (core.OAuthProfile, error) {
	query := url.Values{}
	query.Set("access_token", accessToken)
	endpoint := strings.TrimRight(f.GraphURL, "/") + "/me?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.OAuthProfile{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := f.client.Do(req)
	if err != nil {
		return core.OAuthProfile{}, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return core.OAuthProfile{}, fmt.Errorf("%w: failed read response: %v", core.ErrProfileFetchFailed, err)
	}
	if res.StatusCode/100 != 2 {
		return core.OAuthProfile{}, fmt.Errorf("%w: graph status %d", core.ErrProfileFetchFailed, res.StatusCode)
	}

	var profile facebookProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return core.OAuthProfile{}, fmt.Errorf("%w: failed to parse profile: %v", core.ErrProfileFetchFailed, err)
	}
	if profile.Name == "" {
		return core.OAuthProfile{}, fmt.Errorf("%w: profile missing name", core.ErrProfileFetchFailed)
	}
	return core.OAuthProfile{Name: profile.Name}, nil
}

func isTransportError(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded)
}
