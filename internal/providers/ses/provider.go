// Package ses implements an AWS SES provider. Like the other token-style
// providers it has no per-message read API, so GetMessage is unsupported.
package ses

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/szhangbiao/mailsend/internal/core"
)

// Provider implements the core.Provider interface for AWS SES.
type Provider struct {
	client *ses.Client
	config core.ProviderSettings
}

// NewProvider creates a new AWS SES provider. Required settings: "region" and
// "from". Optional: "access_key"/"secret_key" to override the default AWS
// credential chain, "configuration_set".
func NewProvider(settings core.ProviderSettings) (*Provider, error) {
	region := settings.Get("region")
	if region == "" {
		return nil, &core.ValidationError{Field: "region", Message: "AWS region is required"}
	}
	if settings.Get("from") == "" {
		return nil, &core.ValidationError{Field: "from", Message: "SES sender address is required"}
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, &core.TransportError{Provider: "ses", Message: "failed to load AWS config", Cause: err, Permanent: true}
	}

	if accessKey := settings.Get("access_key"); accessKey != "" {
		secretKey := settings.Get("secret_key")
		if secretKey == "" {
			return nil, &core.ValidationError{Field: "secret_key", Message: "secret key is required when access key is provided"}
		}
		cfg.Credentials = aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     accessKey,
				SecretAccessKey: secretKey,
				SessionToken:    settings.Get("session_token"),
			}, nil
		})
	}

	return &Provider{
		client: ses.NewFromConfig(cfg),
		config: settings,
	}, nil
}

// Send sends a single email using AWS SES.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	from := email.From
	if from == "" || from == core.SentinelSelf {
		from = p.config.Get("from")
	}

	body := &types.Body{}
	if email.HTML {
		body.Html = &types.Content{Data: aws.String(email.Content)}
	} else {
		body.Text = &types.Content{Data: aws.String(email.Content)}
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(email.Subject)},
			Body:    body,
		},
	}
	if len(email.Cc) > 0 {
		input.Destination.CcAddresses = email.Cc
	}
	if len(email.Bcc) > 0 {
		input.Destination.BccAddresses = email.Bcc
	}
	if email.ReplyTo != "" {
		input.ReplyToAddresses = []string{email.ReplyTo}
	}
	if configSet := p.config.Get("configuration_set"); configSet != "" {
		input.ConfigurationSetName = aws.String(configSet)
	}

	output, err := p.client.SendEmail(ctx, input)
	if err != nil {
		if wrapped := core.WrapTimeout("ses send", err); wrapped != err {
			return nil, wrapped
		}
		return nil, &core.TransportError{Provider: p.Name(), Message: "send failed", Cause: err}
	}

	return &core.SendResult{
		MessageID: aws.ToString(output.MessageId),
		Provider:  p.Name(),
		Timestamp: time.Now(),
	}, nil
}

// GetMessage is unsupported: SES exposes no per-message read API.
func (p *Provider) GetMessage(_ context.Context, _ string) (*core.MessageDetails, error) {
	return nil, &core.UnsupportedOperationError{Provider: p.Name(), Operation: "getMessageDetails"}
}

// ValidateConfig validates the provider configuration.
func (p *Provider) ValidateConfig() error {
	if p.config.Get("region") == "" {
		return &core.ValidationError{Field: "region", Message: "AWS region is required"}
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "ses"
}

var _ core.Provider = (*Provider)(nil)
