package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/layer-3/attestor/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTwitter struct {
	server       *httptest.Server
	authHeader   string
	verifier     string
	accessStatus int
	accessBody   string
	confirmed    string
}

func newMockTwitter(t *testing.T) *mockTwitter {
	m := &mockTwitter{
		accessStatus: http.StatusOK,
		accessBody:   "oauth_token=access&oauth_token_secret=access-secret&user_id=1&screen_name=originprotocol",
		confirmed:    "true",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("oauth_token=request-token&oauth_token_secret=request-secret&oauth_callback_confirmed=" + m.confirmed))
	})
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		m.authHeader = r.Header.Get("Authorization")
		m.verifier = r.PostForm.Get("oauth_verifier")
		w.WriteHeader(m.accessStatus)
		_, _ = w.Write([]byte(m.accessBody))
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func newTestTwitter(m *mockTwitter) *Twitter {
	tw := NewTwitter("twitter-consumer-key", "twitter-consumer-secret", "https://testhost.com/callback", time.Second)
	tw.SetEndpoint(oauth1.Endpoint{
		RequestTokenURL: m.server.URL + "/oauth/request_token",
		AuthorizeURL:    m.server.URL + "/oauth/authenticate",
		AccessTokenURL:  m.server.URL + "/oauth/access_token",
	})
	return tw
}

func TestTwitterRequestTokenAndAuthURL(t *testing.T) {
	m := newMockTwitter(t)
	tw := newTestTwitter(m)

	token, err := tw.RequestToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.RequestToken{Token: "request-token", Secret: "request-secret"}, token)

	authURL, err := tw.AuthURL(token.Token)
	require.NoError(t, err)
	assert.Equal(t, m.server.URL+"/oauth/authenticate?oauth_token=request-token", authURL)
}

func TestTwitterRequestTokenNotConfirmed(t *testing.T) {
	m := newMockTwitter(t)
	m.confirmed = "false"
	tw := newTestTwitter(m)

	_, err := tw.RequestToken(context.Background())
	assert.ErrorIs(t, err, core.ErrOAuthExchangeFailed)
}

func TestTwitterRequestTokenTimeoutCancelsUpstream(t *testing.T) {
	cancelled := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	tw := NewTwitter("twitter-consumer-key", "twitter-consumer-secret", "https://testhost.com/callback", 2*time.Second)
	tw.SetEndpoint(oauth1.Endpoint{
		RequestTokenURL: slow.URL + "/oauth/request_token",
		AuthorizeURL:    slow.URL + "/oauth/authenticate",
		AccessTokenURL:  slow.URL + "/oauth/access_token",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := tw.RequestToken(ctx)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.Less(t, time.Since(start), time.Second)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("upstream request still in flight after the caller gave up")
	}
}

func TestTwitterRequestTokenClientTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	tw := NewTwitter("twitter-consumer-key", "twitter-consumer-secret", "https://testhost.com/callback", 50*time.Millisecond)
	tw.SetEndpoint(oauth1.Endpoint{
		RequestTokenURL: slow.URL + "/oauth/request_token",
		AuthorizeURL:    slow.URL + "/oauth/authenticate",
		AccessTokenURL:  slow.URL + "/oauth/access_token",
	})

	_, err := tw.RequestToken(context.Background())
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestTwitterAccessToken(t *testing.T) {
	m := newMockTwitter(t)
	tw := newTestTwitter(m)

	profile, err := tw.AccessToken(context.Background(), core.RequestToken{Token: "request-token", Secret: "request-secret"}, "abcdefg")
	require.NoError(t, err)
	assert.Equal(t, "originprotocol", profile.ScreenName)
	assert.Equal(t, "abcdefg", m.verifier)
	assert.True(t, strings.HasPrefix(m.authHeader, "OAuth "))
	assert.Contains(t, m.authHeader, `oauth_token="request-token"`)
	assert.Contains(t, m.authHeader, `oauth_consumer_key="twitter-consumer-key"`)
}

func TestTwitterAccessTokenErrors(t *testing.T) {
	m := newMockTwitter(t)
	tw := newTestTwitter(m)
	token := core.RequestToken{Token: "request-token", Secret: "request-secret"}

	m.accessStatus = http.StatusUnauthorized
	m.accessBody = "Invalid request token"
	_, err := tw.AccessToken(context.Background(), token, "bad")
	assert.ErrorIs(t, err, core.ErrOAuthExchangeFailed)

	m.accessStatus = http.StatusOK
	m.accessBody = "oauth_token=access&oauth_token_secret=access-secret"
	_, err = tw.AccessToken(context.Background(), token, "abcdefg")
	assert.ErrorIs(t, err, core.ErrOAuthExchangeFailed)

	m.accessStatus = http.StatusServiceUnavailable
	_, err = tw.AccessToken(context.Background(), token, "abcdefg")
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}
