package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"go.uber.org/zap"
)

// TwitterChannel runs the OAuth1 three-legged flow. The request token
// secret is kept in the client's session between the two legs.
type TwitterChannel struct {
	oauth   ports.TwitterOAuth
	slot    *SessionSlot
	timeout time.Duration
	logger  *zap.Logger
}

func NewTwitterChannel(oauth ports.TwitterOAuth, slot *SessionSlot, timeout time.Duration, logger *zap.Logger) *TwitterChannel {
	return &TwitterChannel{
		oauth:   oauth,
		slot:    slot,
		timeout: timeout,
		logger:  logger.Named("twitter"),
	}
}

func (c *TwitterChannel) Kind() core.ChannelKind { return core.ChannelTwitter }

func (c *TwitterChannel) Initiate(ctx context.Context, clientKey string, req core.InitiateRequest) (core.InitiateResult, error) {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.oauth.RequestToken(pctx)
	if err != nil {
		c.logger.Warn("Twitter request token failed", zap.Error(err))
		return core.InitiateResult{}, providerError(err, core.ErrOAuthExchangeFailed)
	}

	authURL, err := c.oauth.AuthURL(token.Token)
	if err != nil {
		return core.InitiateResult{}, providerError(err, core.ErrOAuthExchangeFailed)
	}

	if _, err := c.slot.Open(ctx, clientKey, core.ChannelTwitter, token.Token, token.Secret, ""); err != nil {
		return core.InitiateResult{}, err
	}
	return core.InitiateResult{URL: authURL}, nil
}

func (c *TwitterChannel) Confirm(ctx context.Context, clientKey string, req core.ConfirmRequest) (core.Verification, error) {
	verifier := strings.TrimSpace(req.Code)
	if verifier == "" {
		return core.Verification{}, fmt.Errorf("empty oauth verifier: %w", core.ErrInvalidInput)
	}

	session, err := c.slot.Take(ctx, clientKey, core.ChannelTwitter)
	if err != nil {
		return core.Verification{}, err
	}

	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	profile, err := c.oauth.AccessToken(pctx, core.RequestToken{Token: session.Target, Secret: session.Secret}, verifier)
	if err != nil {
		err = providerError(err, core.ErrOAuthExchangeFailed)
		// A rejected verifier burns the request token; only transient
		// failures leave it usable.
		if errors.Is(err, core.ErrProviderUnavailable) {
			if rerr := c.slot.Release(ctx, clientKey, session); rerr != nil {
				c.logger.Error("Failed to restore twitter session", zap.Error(rerr))
			}
		}
		c.logger.Info("Twitter access token exchange failed", zap.Error(err))
		return core.Verification{}, err
	}
	if profile.ScreenName == "" {
		return core.Verification{}, fmt.Errorf("response has no screen_name: %w", core.ErrOAuthExchangeFailed)
	}

	return core.Verification{
		Method: core.MethodOAuth,
		Site: &core.Site{
			Verified: true,
			SiteName: core.SiteTwitter,
			UserID:   &core.UserID{Raw: profile.ScreenName},
		},
	}, nil
}
