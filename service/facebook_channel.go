package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"go.uber.org/zap"
)

// FacebookChannel keeps no server state: the authorization code carries
// everything needed to finish the flow.
type FacebookChannel struct {
	oauth   ports.FacebookOAuth
	timeout time.Duration
	logger  *zap.Logger
}

func NewFacebookChannel(oauth ports.FacebookOAuth, timeout time.Duration, logger *zap.Logger) *FacebookChannel {
	return &FacebookChannel{
		oauth:   oauth,
		timeout: timeout,
		logger:  logger.Named("facebook"),
	}
}

func (c *FacebookChannel) Kind() core.ChannelKind { return core.ChannelFacebook }

func (c *FacebookChannel) Initiate(ctx context.Context, clientKey string, req core.InitiateRequest) (core.InitiateResult, error) {
	return core.InitiateResult{URL: c.oauth.AuthURL()}, nil
}

func (c *FacebookChannel) Confirm(ctx context.Context, clientKey string, req core.ConfirmRequest) (core.Verification, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.Verification{}, fmt.Errorf("empty authorization code: %w", core.ErrInvalidInput)
	}

	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	accessToken, err := c.oauth.Exchange(pctx, code)
	if err != nil {
		c.logger.Info("Facebook code exchange failed", zap.Error(err))
		return core.Verification{}, providerError(err, core.ErrOAuthExchangeFailed)
	}

	profile, err := c.oauth.Profile(pctx, accessToken)
	if err != nil {
		c.logger.Info("Facebook profile fetch failed", zap.Error(err))
		return core.Verification{}, providerError(err, core.ErrProfileFetchFailed)
	}
	if profile.Name == "" {
		return core.Verification{}, fmt.Errorf("profile has no name: %w", core.ErrProfileFetchFailed)
	}

	return core.Verification{
		Method: core.MethodOAuth,
		Site: &core.Site{
			Verified: true,
			SiteName: core.SiteFacebook,
		},
	}, nil
}
