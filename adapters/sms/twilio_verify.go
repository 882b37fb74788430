package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

// TwilioVerify talks to the Twilio Verify v2 API. Twilio generates, sends
// and checks the code; only the verification sid is kept locally.
type TwilioVerify struct {
	// BaseURL redirects API calls to another host, e.g. a local mock.
	BaseURL    string
	accountSID string
	authToken  string
	serviceSID string
	timeout    time.Duration
}

func NewTwilioVerify(accountSID, authToken, serviceSID string, timeout time.Duration) *TwilioVerify {
	return &TwilioVerify{
		accountSID: accountSID,
		authToken:  authToken,
		serviceSID: serviceSID,
		timeout:    timeout,
	}
}

var _ ports.SMSProvider = (*TwilioVerify)(nil)

func (t *TwilioVerify) StartVerification(ctx context.Context, phone string, channel string) (string, error) {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel(channel)

	resp, err := t.api(ctx).VerifyV2.CreateVerification(t.serviceSID, params)
	if err != nil {
		var restErr *client.TwilioRestError
		if errors.As(err, &restErr) && !isTransient(restErr.Status) {
			return "", fmt.Errorf("twilio rejected verification start with status %d: %w", restErr.Status, core.ErrInvalidPhone)
		}
		return "", fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	if resp == nil || resp.Sid == nil || *resp.Sid == "" {
		return "", fmt.Errorf("%w: twilio response missing sid", core.ErrProviderUnavailable)
	}
	return *resp.Sid, nil
}

func (t *TwilioVerify) CheckVerification(ctx context.Context, verificationID string, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetVerificationSid(verificationID)
	params.SetCode(code)

	resp, err := t.api(ctx).VerifyV2.CreateVerificationCheck(t.serviceSID, params)
	if err != nil {
		var restErr *client.TwilioRestError
		if errors.As(err, &restErr) && !isTransient(restErr.Status) {
			// 404 means the verification expired or was already approved.
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	return resp != nil && resp.Status != nil && *resp.Status == "approved", nil
}

func isTransient(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// api builds a client whose requests are bound to ctx. The generated twilio-go
// calls take no context of their own.
func (t *TwilioVerify) api(ctx context.Context) *twilio.RestClient {
	var base *url.URL
	if t.BaseURL != "" {
		base, _ = url.Parse(t.BaseURL)
	}
	httpClient := &http.Client{
		Timeout:   t.timeout,
		Transport: requestTransport{ctx: ctx, base: base, next: http.DefaultTransport},
	}
	c := &client.Client{
		Credentials: client.NewCredentials(t.accountSID, t.authToken),
		HTTPClient:  httpClient,
	}
	c.SetAccountSid(t.accountSID)
	return twilio.NewRestClientWithParams(twilio.ClientParams{Client: c})
}

type requestTransport struct {
	ctx  context.Context
	base *url.URL
	next http.RoundTripper
}

func (r requestTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.WithContext(r.ctx)
	if r.base != nil && r.base.Host != "" {
		req.URL.Scheme = r.base.Scheme
		req.URL.Host = r.base.Host
		req.Host = r.base.Host
	}
	return r.next.RoundTrip(req)
}
