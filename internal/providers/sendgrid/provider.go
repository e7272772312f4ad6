// Package sendgrid implements the token-based HTTP-API provider variant:
// a static API key, SendGrid's own payload schema, and no message read API.
package sendgrid

import (
	"context"
	"net/http"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/szhangbiao/mailsend/internal/core"
)

// Provider implements the core.Provider interface for SendGrid.
type Provider struct {
	client *sendgrid.Client
	config core.ProviderSettings
}

// NewProvider creates a new SendGrid provider. Required settings: "api_key"
// and "from" (SendGrid has no authenticated-identity sentinel, so a concrete
// sender address must be configured for requests that use it).
func NewProvider(settings core.ProviderSettings) (*Provider, error) {
	if settings.Get("api_key") == "" {
		return nil, &core.ValidationError{Field: "api_key", Message: "SendGrid API key is required"}
	}
	if settings.Get("from") == "" {
		return nil, &core.ValidationError{Field: "from", Message: "SendGrid sender address is required"}
	}

	return &Provider{
		client: sendgrid.NewSendClient(settings.Get("api_key")),
		config: settings,
	}, nil
}

// Send sends a single email through the SendGrid v3 mail API.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	from := email.From
	if from == "" || from == core.SentinelSelf {
		from = p.config.Get("from")
	}

	text, html := email.Content, ""
	if email.HTML {
		text, html = "", email.Content
	}

	msg := mail.NewSingleEmail(
		mail.NewEmail("", from),
		email.Subject,
		mail.NewEmail("", email.To),
		text,
		html,
	)

	if len(email.Cc) > 0 || len(email.Bcc) > 0 {
		personalization := msg.Personalizations[0]
		for _, cc := range email.Cc {
			personalization.AddCCs(mail.NewEmail("", cc))
		}
		for _, bcc := range email.Bcc {
			personalization.AddBCCs(mail.NewEmail("", bcc))
		}
	}
	if email.ReplyTo != "" {
		msg.SetReplyTo(mail.NewEmail("", email.ReplyTo))
	}

	resp, err := p.client.SendWithContext(ctx, msg)
	if err != nil {
		if wrapped := core.WrapTimeout("sendgrid send", err); wrapped != err {
			return nil, wrapped
		}
		return nil, &core.TransportError{Provider: p.Name(), Message: "send failed", Cause: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &core.TransportError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Message:    core.Preview(resp.Body),
			Permanent:  resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests,
		}
	}

	// SendGrid reports the assigned identifier in the X-Message-Id header.
	messageID := ""
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}

	return &core.SendResult{
		MessageID: messageID,
		Provider:  p.Name(),
		Timestamp: time.Now(),
	}, nil
}

// GetMessage is unsupported: the send API key grants no message read access.
func (p *Provider) GetMessage(_ context.Context, _ string) (*core.MessageDetails, error) {
	return nil, &core.UnsupportedOperationError{Provider: p.Name(), Operation: "getMessageDetails"}
}

// ValidateConfig validates the provider configuration.
func (p *Provider) ValidateConfig() error {
	if p.config.Get("api_key") == "" {
		return &core.ValidationError{Field: "api_key", Message: "SendGrid API key is required"}
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "sendgrid"
}

var _ core.Provider = (*Provider)(nil)
