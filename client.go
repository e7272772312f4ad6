package mailsend

import (
	"context"
	"fmt"
	"sync"

	"github.com/szhangbiao/mailsend/internal/cache"
	"github.com/szhangbiao/mailsend/internal/providers/gmail"
	"github.com/szhangbiao/mailsend/internal/providers/sendgrid"
	"github.com/szhangbiao/mailsend/internal/providers/ses"
	"github.com/szhangbiao/mailsend/internal/providers/webhook"
	"github.com/szhangbiao/mailsend/internal/tokencache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client implements the Mailer interface and provides email sending capabilities.
// All methods are safe for concurrent use.
type Client struct {
	config       Config
	provider     Provider
	fallback     Provider
	tokens       TokenStore
	ownsTokens   bool
	retryManager *RetryManager
	tracer       trace.Tracer
	mu           sync.RWMutex
	closed       bool
}

// New creates a new email client with the given configuration.
// The client must be closed when no longer needed to release resources.
func New(config Config, opts ...Option) (*Client, error) {
	// Apply functional options
	for _, opt := range opts {
		opt(&config)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		config: config,
		tokens: config.Provider.TokenStore,
		tracer: otel.Tracer("github.com/szhangbiao/mailsend"),
	}

	// Token-minting providers need a store; default to an in-process one.
	if client.tokens == nil {
		client.tokens = cache.NewMemory[tokencache.CachedToken]()
		client.ownsTokens = true
	}

	// Initialize provider
	provider, err := client.createProvider(config.Provider.Type, config.Provider.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary provider: %w", err)
	}
	client.provider = provider

	// Initialize fallback provider if configured
	if config.Provider.Fallback != nil {
		fallbackType := ProviderType(config.Provider.Fallback.Get("type"))
		if fallbackType != "" {
			fallback, err := client.createProvider(fallbackType, *config.Provider.Fallback)
			if err != nil {
				return nil, fmt.Errorf("failed to create fallback provider: %w", err)
			}
			client.fallback = fallback
		}
	}

	// Initialize retry manager
	if config.Retry.Enabled {
		client.retryManager = NewRetryManager(config.Retry)
	}

	return client, nil
}

// createProvider instantiates a provider adapter for the given type.
func (c *Client) createProvider(providerType ProviderType, settings ProviderSettings) (Provider, error) {
	switch providerType {
	case ProviderGmail:
		return gmail.NewServiceAccount(settings, c.tokens)
	case ProviderGmailUser:
		return gmail.NewUser(settings)
	case ProviderSendGrid:
		return sendgrid.NewProvider(settings)
	case ProviderWebhook:
		return webhook.NewProvider(settings)
	case ProviderAWSSES:
		return ses.NewProvider(settings)
	default:
		return nil, &ValidationError{
			Field:   "provider.type",
			Message: "unsupported provider type: " + string(providerType),
		}
	}
}

// Send sends a single email and returns the provider-assigned identifiers.
func (c *Client) Send(ctx context.Context, email *Email) (*SendResult, error) {
	ctx, span := c.tracer.Start(ctx, "mailsend.Client.Send")
	defer span.End()

	// Check if client is closed
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		span.RecordError(ErrClientClosed)
		span.SetStatus(codes.Error, ErrClientClosed.Error())
		return nil, ErrClientClosed
	}
	c.mu.RUnlock()

	// Add attributes to span
	span.SetAttributes(
		attribute.String("mailsend.to", email.To),
		attribute.String("mailsend.subject", email.Subject),
		attribute.String("mailsend.provider", c.provider.Name()),
	)

	// Validate email
	if err := email.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	var result *SendResult
	sendFn := func() error {
		var sendErr error
		result, sendErr = c.sendWithProvider(ctx, email, c.provider)

		// Try fallback provider if primary fails and fallback is available
		if sendErr != nil && c.fallback != nil && IsRetryable(sendErr) {
			result, sendErr = c.sendWithProvider(ctx, email, c.fallback)
		}

		return sendErr
	}

	err := sendFn()

	// Apply retry logic if enabled
	if err != nil && c.retryManager != nil && IsRetryable(err) {
		err = c.retryManager.Retry(ctx, sendFn)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("mailsend.message_id", result.MessageID),
		attribute.String("mailsend.status", "sent"),
	)
	span.SetStatus(codes.Ok, "email sent successfully")

	return result, nil
}

// GetMessage retrieves a previously sent message from the primary provider.
func (c *Client) GetMessage(ctx context.Context, id string) (*MessageDetails, error) {
	ctx, span := c.tracer.Start(ctx, "mailsend.Client.GetMessage")
	defer span.End()

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		span.RecordError(ErrClientClosed)
		span.SetStatus(codes.Error, ErrClientClosed.Error())
		return nil, ErrClientClosed
	}
	c.mu.RUnlock()

	span.SetAttributes(
		attribute.String("mailsend.message_id", id),
		attribute.String("mailsend.provider", c.provider.Name()),
	)

	if id == "" {
		err := &ValidationError{Field: "id", Message: "message id is required"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	if c.config.Provider.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Provider.Timeout)
		defer cancel()
	}

	details, err := c.provider.GetMessage(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get message failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "message retrieved")
	return details, nil
}

// ProviderName returns the name of the primary provider.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// sendWithProvider sends an email through the given provider with the
// configured timeout applied.
func (c *Client) sendWithProvider(ctx context.Context, email *Email, provider Provider) (*SendResult, error) {
	if c.config.Provider.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Provider.Timeout)
		defer cancel()
	}
	return provider.Send(ctx, email)
}

// Close closes the client and releases any resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	// Only close a store the client created itself; a shared store's
	// lifecycle belongs to the caller.
	if c.ownsTokens {
		return c.tokens.Close()
	}

	return nil
}
