package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/service"
	"go.uber.org/zap"
)

// AttestationHandlers contains HTTP handlers for attestation endpoints
type AttestationHandlers struct {
	service *service.AttestationService
	logger  *zap.Logger
}

// NewAttestationHandlers creates new attestation handlers
func NewAttestationHandlers(svc *service.AttestationService, logger *zap.Logger) *AttestationHandlers {
	return &AttestationHandlers{
		service: svc,
		logger:  logger,
	}
}

type phoneCodeRequest struct {
	CountryCallingCode string `json:"country_calling_code" binding:"required"`
	Phone              string `json:"phone" binding:"required"`
	Method             string `json:"method"`
}

type phoneVerifyRequest struct {
	CountryCallingCode string `json:"country_calling_code" binding:"required"`
	Phone              string `json:"phone" binding:"required"`
	Code               string `json:"code" binding:"required"`
	Identity           string `json:"identity" binding:"required"`
}

type emailCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type emailVerifyRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required"`
	Identity string `json:"identity" binding:"required"`
}

type facebookVerifyRequest struct {
	Code     string `json:"code" binding:"required"`
	Identity string `json:"identity" binding:"required"`
}

type twitterVerifyRequest struct {
	Verifier string `json:"oauth-verifier" binding:"required"`
	Identity string `json:"identity" binding:"required"`
}

// PhoneGenerateCode asks the SMS provider to send a code
func (h *AttestationHandlers) PhoneGenerateCode(c *gin.Context) {
	var req phoneCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	_, err := h.service.Initiate(c.Request.Context(), core.ChannelPhone, clientKey(c), core.InitiateRequest{
		CountryCode:    req.CountryCallingCode,
		Phone:          req.Phone,
		DeliveryMethod: req.Method,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// PhoneVerify checks the code and returns a phone attestation
func (h *AttestationHandlers) PhoneVerify(c *gin.Context) {
	var req phoneVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	attestation, err := h.service.Confirm(c.Request.Context(), core.ChannelPhone, clientKey(c), req.Identity, core.ConfirmRequest{
		CountryCode: req.CountryCallingCode,
		Phone:       req.Phone,
		Code:        req.Code,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attestation)
}

// EmailGenerateCode emails a verification code
func (h *AttestationHandlers) EmailGenerateCode(c *gin.Context) {
	var req emailCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	_, err := h.service.Initiate(c.Request.Context(), core.ChannelEmail, clientKey(c), core.InitiateRequest{
		Email: req.Email,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// EmailVerify checks the code and returns an email attestation
func (h *AttestationHandlers) EmailVerify(c *gin.Context) {
	var req emailVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	attestation, err := h.service.Confirm(c.Request.Context(), core.ChannelEmail, clientKey(c), req.Identity, core.ConfirmRequest{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attestation)
}

// AuthURL returns the provider authorization URL for an OAuth channel
func (h *AttestationHandlers) AuthURL(kind core.ChannelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.Initiate(c.Request.Context(), kind, clientKey(c), core.InitiateRequest{})
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": result.URL})
	}
}

// FacebookVerify exchanges the authorization code and returns a site attestation
func (h *AttestationHandlers) FacebookVerify(c *gin.Context) {
	var req facebookVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	attestation, err := h.service.Confirm(c.Request.Context(), core.ChannelFacebook, clientKey(c), req.Identity, core.ConfirmRequest{
		Code: req.Code,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attestation)
}

// TwitterVerify exchanges the oauth verifier and returns a site attestation
func (h *AttestationHandlers) TwitterVerify(c *gin.Context) {
	var req twitterVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	attestation, err := h.service.Confirm(c.Request.Context(), core.ChannelTwitter, clientKey(c), req.Identity, core.ConfirmRequest{
		Code: req.Verifier,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attestation)
}

func (h *AttestationHandlers) writeError(c *gin.Context, err error) {
	statusCode, errorMsg := StatusForError(err)
	if statusCode >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(statusCode, gin.H{
		"errors":    []string{errorMsg},
		"retryable": core.IsRetryable(err),
	})
}

// StatusForError maps a core error to an HTTP status and a client-safe message.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		return http.StatusBadRequest, "Invalid identity address"
	case errors.Is(err, core.ErrInvalidPhone):
		return http.StatusBadRequest, "Invalid phone number"
	case errors.Is(err, core.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, core.ErrCodeInvalid):
		return http.StatusBadRequest, "Verification code is incorrect"
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound, "No pending verification, request a new code"
	case errors.Is(err, core.ErrSessionExpired):
		return http.StatusGone, "Verification expired, request a new code"
	case errors.Is(err, core.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "Verification provider unavailable, try again"
	case errors.Is(err, core.ErrOAuthExchangeFailed):
		return http.StatusBadGateway, "Could not complete authorization, try again"
	case errors.Is(err, core.ErrProfileFetchFailed):
		return http.StatusBadGateway, "Could not read account profile, try again"
	case errors.Is(err, core.ErrEmailSendFailed):
		return http.StatusBadGateway, "Could not send verification email, try again"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"errors":    []string{"Invalid request: " + err.Error()},
		"retryable": false,
	})
}

func clientKey(c *gin.Context) string {
	return c.GetString(clientKeyContextKey)
}
