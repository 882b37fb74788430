package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/attestor/adapters/signer"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testIssueTime = time.Date(2019, 4, 2, 15, 4, 5, 0, time.UTC)

type serviceFixture struct {
	svc       *AttestationService
	sms       *fakeSMS
	sender    *fakeSender
	facebook  *fakeFacebook
	twitter   *fakeTwitter
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	ethSigner, err := signer.NewEthSigner(testIssuerKey)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testIssuerAddress).Hex(), ethSigner.Address())

	f := &serviceFixture{
		sms:       newFakeSMS(),
		sender:    newFakeSender(),
		facebook:  &fakeFacebook{profile: core.OAuthProfile{Name: "Origin Protocol"}},
		twitter:   &fakeTwitter{screenName: "originprotocol"},
		publisher: &recordingPublisher{},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}

	logger := zap.NewNop()
	validator := NewValidator()
	slot := newTestSlot(newClock(), 5)
	registry := NewRegistry(
		NewPhoneChannel(validator, f.sms, slot, time.Second, logger),
		NewEmailChannel(validator, f.sender, slot, time.Second, logger),
		NewFacebookChannel(f.facebook, time.Second, logger),
		NewTwitterChannel(f.twitter, slot, time.Second, logger),
	)
	issuer := core.Issuer{
		Name:       "Origin Protocol",
		URL:        "https://www.originprotocol.com",
		EthAddress: ethSigner.Address(),
	}
	builder := NewBuilder(issuer, func() time.Time { return testIssueTime })

	f.svc = NewAttestationService(registry, validator, builder, ethSigner, f.publisher, f.metrics, logger)
	return f
}

func assertSignedBy(t *testing.T, identity string, a *core.Attestation) {
	t.Helper()
	require.Len(t, a.Signature.Bytes, core.SignatureHexLength)
	assert.Equal(t, core.SignatureVersion, a.Signature.Version)
	assert.Equal(t, core.SchemaID, a.SchemaID)

	sig, err := hexutil.Decode(a.Signature.Bytes)
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := signer.Recover(identity, a.Data, sig)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testIssuerAddress), recovered)
}

func TestConfirmPhone(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, core.ChannelPhone, testClientKey, core.InitiateRequest{CountryCode: "1", Phone: "12341234"})
	require.NoError(t, err)

	a, err := f.svc.Confirm(ctx, core.ChannelPhone, testClientKey, testIdentity, core.ConfirmRequest{
		CountryCode: "1",
		Phone:       "12341234",
		Code:        "123456",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"sms": true}, a.Data.Attestation.VerificationMethod)
	assert.Equal(t, &core.Verified{Verified: true}, a.Data.Attestation.Phone)
	assert.Equal(t, "Origin Protocol", a.Data.Issuer.Name)
	assert.Equal(t, "https://www.originprotocol.com", a.Data.Issuer.URL)
	assert.Equal(t, common.HexToAddress(testIssuerAddress).Hex(), a.Data.Issuer.EthAddress)
	assert.Equal(t, "2019-04-02T15:04:05Z", a.Data.IssueDate)
	assertSignedBy(t, testIdentity, a)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, testIdentity, event.Identity)
	assert.Equal(t, core.ChannelPhone, event.Channel)
	assert.Equal(t, core.MethodSMS, event.Method)
	assert.Equal(t, a.Data.IssueDate, event.IssueDate)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Initiations.WithLabelValues("phone", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Confirmations.WithLabelValues("phone", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Issued.WithLabelValues("phone", "sms")))
}

func TestConfirmEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, core.ChannelEmail, testClientKey, core.InitiateRequest{Email: "origin@protocol.foo"})
	require.NoError(t, err)

	a, err := f.svc.Confirm(ctx, core.ChannelEmail, testClientKey, testIdentity, core.ConfirmRequest{
		Email: "origin@protocol.foo",
		Code:  f.sender.codeFor("origin@protocol.foo"),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"email": true}, a.Data.Attestation.VerificationMethod)
	assert.Equal(t, &core.Verified{Verified: true}, a.Data.Attestation.Email)
	assert.Nil(t, a.Data.Attestation.Phone)
	assertSignedBy(t, testIdentity, a)
}

func TestConfirmFacebook(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.Initiate(ctx, core.ChannelFacebook, testClientKey, core.InitiateRequest{})
	require.NoError(t, err)
	assert.Contains(t, res.URL, "redirect_uri=")

	a, err := f.svc.Confirm(ctx, core.ChannelFacebook, testClientKey, testIdentity, core.ConfirmRequest{Code: "abcde12345"})
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"oAuth": true}, a.Data.Attestation.VerificationMethod)
	assert.Equal(t, &core.Site{Verified: true, SiteName: "facebook.com"}, a.Data.Attestation.Site)
	assertSignedBy(t, testIdentity, a)
}

func TestConfirmTwitter(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, core.ChannelTwitter, testClientKey, core.InitiateRequest{})
	require.NoError(t, err)

	a, err := f.svc.Confirm(ctx, core.ChannelTwitter, testClientKey, testIdentity, core.ConfirmRequest{Code: "abcdefg"})
	require.NoError(t, err)

	require.NotNil(t, a.Data.Attestation.Site)
	assert.Equal(t, "twitter.com", a.Data.Attestation.Site.SiteName)
	assert.Equal(t, "originprotocol", a.Data.Attestation.Site.UserID.Raw)
	assertSignedBy(t, testIdentity, a)
}

func TestConfirmInvalidIdentityKeepsSession(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, core.ChannelPhone, testClientKey, core.InitiateRequest{CountryCode: "1", Phone: "12341234"})
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, core.ChannelPhone, testClientKey, "0x1234", core.ConfirmRequest{
		CountryCode: "1", Phone: "12341234", Code: "123456",
	})
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	assert.Zero(t, f.sms.checks)

	_, err = f.svc.Confirm(ctx, core.ChannelPhone, testClientKey, testIdentity, core.ConfirmRequest{
		CountryCode: "1", Phone: "12341234", Code: "123456",
	})
	assert.NoError(t, err)
}

func TestConfirmUnknownChannel(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Confirm(context.Background(), core.ChannelKind("myspace"), testClientKey, testIdentity, core.ConfirmRequest{})
	assert.ErrorIs(t, err, core.ErrUnknownChannel)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestConfirmFailureIssuesNothing(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Confirm(ctx, core.ChannelPhone, testClientKey, testIdentity, core.ConfirmRequest{
		CountryCode: "1", Phone: "12341234", Code: "123456",
	})
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.Empty(t, f.publisher.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Confirmations.WithLabelValues("phone", "session_not_found")))
}

func TestPublishFailureDoesNotFailConfirm(t *testing.T) {
	f := newServiceFixture(t)
	f.publisher.err = errors.New("stream down")

	a, err := f.svc.Confirm(context.Background(), core.ChannelFacebook, testClientKey, testIdentity, core.ConfirmRequest{Code: "abcde12345"})
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestIssueIsDeterministic(t *testing.T) {
	f := newServiceFixture(t)
	v := core.Verification{Method: core.MethodEmail, Email: &core.Verified{Verified: true}}

	first, err := f.svc.Issue(testIdentity, v)
	require.NoError(t, err)
	second, err := f.svc.Issue(testIdentity, v)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := f.svc.Issue("0x0000000000000000000000000000000000000001", v)
	require.NoError(t, err)
	assert.NotEqual(t, first.Signature.Bytes, other.Signature.Bytes)
}

func TestAttestationJSONShape(t *testing.T) {
	f := newServiceFixture(t)
	a, err := f.svc.Issue(testIdentity, core.Verification{Method: core.MethodSMS, Phone: &core.Verified{Verified: true}})
	require.NoError(t, err)

	raw, err := json.Marshal(a)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, core.SchemaID, doc["schemaId"])

	data := doc["data"].(map[string]any)
	assert.Equal(t, "2019-04-02T15:04:05Z", data["issueDate"])
	issuer := data["issuer"].(map[string]any)
	assert.Equal(t, common.HexToAddress(testIssuerAddress).Hex(), issuer["ethAddress"])

	claim := data["attestation"].(map[string]any)
	assert.Equal(t, map[string]any{"sms": true}, claim["verificationMethod"])
	assert.Equal(t, map[string]any{"verified": true}, claim["phone"])
	assert.NotContains(t, claim, "email")
	assert.NotContains(t, claim, "site")

	sig := doc["signature"].(map[string]any)
	assert.Equal(t, "1.0.0", sig["version"])
}

type shortSigner struct{}

func (shortSigner) Address() string { return testIssuerAddress }

func (shortSigner) Sign(identity string, data core.AttestationData) ([]byte, error) {
	return make([]byte, 10), nil
}

func TestIssueRejectsMalformedSignature(t *testing.T) {
	builder := NewBuilder(core.Issuer{}, nil)
	svc := NewAttestationService(NewRegistry(), NewValidator(), builder, shortSigner{}, nil, metrics.New(prometheus.NewRegistry()), zap.NewNop())

	_, err := svc.Issue(testIdentity, core.Verification{Method: core.MethodEmail, Email: &core.Verified{Verified: true}})
	assert.ErrorIs(t, err, core.ErrSigning)
}
