package email

import (
	"context"
	"fmt"

	"github.com/layer-3/attestor/core"
	"github.com/layer-3/attestor/ports"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	DefaultSendGridHost = "https://api.sendgrid.com"
	sendGridMailPath    = "/v3/mail/send"
)

// SendGridSender delivers verification codes through the SendGrid v3 API.
type SendGridSender struct {
	// Host can be overridden for testing.
	Host    string
	apiKey  string
	from    *mail.Email
	subject string
}

func NewSendGridSender(apiKey, fromAddress, fromName string) *SendGridSender {
	return &SendGridSender{
		Host:    DefaultSendGridHost,
		apiKey:  apiKey,
		from:    mail.NewEmail(fromName, fromAddress),
		subject: "Your verification code",
	}
}

var _ ports.EmailSender = (*SendGridSender)(nil)

func (s *SendGridSender) Send(ctx context.Context, address string, code string) error {
	to := mail.NewEmail("", address)
	message := mail.NewSingleEmail(s.from, s.subject, to, Body(code), "")

	request := sendgrid.GetRequest(s.apiKey, sendGridMailPath, s.Host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
		}
		return fmt.Errorf("%w: %v", core.ErrEmailSendFailed, err)
	}
	if response.StatusCode/100 != 2 {
		return fmt.Errorf("%w: sendgrid status %d", core.ErrEmailSendFailed, response.StatusCode)
	}
	return nil
}

// Body is the plain text content of a verification email.
func Body(code string) string {
	return "Your verification code is " + code + ". It expires shortly; if you did not request it, ignore this email."
}
