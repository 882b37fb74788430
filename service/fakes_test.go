package service

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/attestor/core"
)

const (
	testIssuerKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcab78e4c5b38e8c7a"
	testIssuerAddress = "0xDa889A17De5edBCcf661fC45fC79Cf5B528FCa0D"
	testIdentity      = "0x112234455c3a32fd11230c42e7bccd4a84e02010"
	testClientKey     = "client-1"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Now()} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeSMS accepts code "123456" for every verification it started.
type fakeSMS struct {
	mu        sync.Mutex
	started   []string
	channels  []string
	startErr  error
	checkErr  error
	checks    int
	validCode string
}

func newFakeSMS() *fakeSMS { return &fakeSMS{validCode: "123456"} }

func (f *fakeSMS) StartVerification(ctx context.Context, phone string, channel string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, phone)
	f.channels = append(f.channels, channel)
	return "VE" + phone, nil
}

func (f *fakeSMS) CheckVerification(ctx context.Context, verificationID string, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return code == f.validCode, nil
}

type fakeSender struct {
	mu    sync.Mutex
	sent  map[string]string
	err   error
	calls int
}

func newFakeSender() *fakeSender { return &fakeSender{sent: map[string]string{}} }

func (f *fakeSender) Send(ctx context.Context, address string, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent[address] = code
	return nil
}

func (f *fakeSender) codeFor(address string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[address]
}

type fakeFacebook struct {
	exchangeErr error
	profileErr  error
	profile     core.OAuthProfile
	codes       []string
}

func (f *fakeFacebook) AuthURL() string {
	return "https://www.facebook.com/v3.2/dialog/oauth?client_id=facebook-client-id&redirect_uri=https%3A%2F%2Ftesthost.com%2Fredirect-here"
}

func (f *fakeFacebook) Exchange(ctx context.Context, code string) (string, error) {
	f.codes = append(f.codes, code)
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return "access-" + code, nil
}

func (f *fakeFacebook) Profile(ctx context.Context, accessToken string) (core.OAuthProfile, error) {
	if f.profileErr != nil {
		return core.OAuthProfile{}, f.profileErr
	}
	return f.profile, nil
}

type fakeTwitter struct {
	requestErr error
	accessErr  error
	screenName string
	verifiers  []string
	tokens     []core.RequestToken
	issued     int
}

func (f *fakeTwitter) RequestToken(ctx context.Context) (core.RequestToken, error) {
	if f.requestErr != nil {
		return core.RequestToken{}, f.requestErr
	}
	f.issued++
	return core.RequestToken{Token: "request-token", Secret: "request-secret"}, nil
}

func (f *fakeTwitter) AuthURL(requestToken string) (string, error) {
	return "https://api.twitter.com/oauth/authenticate?oauth_token=" + requestToken, nil
}

func (f *fakeTwitter) AccessToken(ctx context.Context, token core.RequestToken, verifier string) (core.OAuthProfile, error) {
	f.verifiers = append(f.verifiers, verifier)
	f.tokens = append(f.tokens, token)
	if f.accessErr != nil {
		return core.OAuthProfile{}, f.accessErr
	}
	return core.OAuthProfile{ScreenName: f.screenName}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.IssuedEvent
	err    error
}

func (p *recordingPublisher) PublishIssued(ctx context.Context, event core.IssuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}
