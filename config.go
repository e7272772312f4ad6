package mailsend

import (
	"time"
)

// Config holds the complete mailsend configuration.
type Config struct {
	// Provider contains provider-specific configuration.
	Provider ProviderConfig

	// Retry contains retry policy configuration.
	Retry RetryConfig
}

// ProviderConfig contains provider-specific settings.
type ProviderConfig struct {
	// Type specifies the email provider to use.
	Type ProviderType

	// Primary contains settings for the primary provider.
	Primary ProviderSettings

	// Fallback contains settings for the fallback provider (optional).
	// The map must carry a "type" key naming the fallback provider.
	Fallback *ProviderSettings

	// Timeout is the maximum time to wait for provider operations.
	Timeout time.Duration

	// TokenStore backs access-token caching for providers that mint
	// their own OAuth tokens. When nil, an in-process store is used;
	// share tokens across instances by supplying a Redis-backed store.
	TokenStore TokenStore
}

// ProviderType represents the type of email provider.
type ProviderType string

const (
	// ProviderGmail sends through the Gmail REST API using a
	// service-account key with domain-wide delegation.
	ProviderGmail ProviderType = "gmail"

	// ProviderGmailUser sends through the Gmail REST API on behalf of a
	// user who granted an OAuth refresh token.
	ProviderGmailUser ProviderType = "gmail_user"

	// ProviderSendGrid represents the SendGrid email service.
	ProviderSendGrid ProviderType = "sendgrid"

	// ProviderWebhook forwards the message to an HTTP endpoint that
	// performs the actual delivery.
	ProviderWebhook ProviderType = "webhook"

	// ProviderAWSSES represents Amazon Simple Email Service.
	ProviderAWSSES ProviderType = "aws_ses"
)

// String returns the string representation of the provider type.
func (pt ProviderType) String() string {
	return string(pt)
}

// Valid checks if the provider type is supported.
func (pt ProviderType) Valid() bool {
	switch pt {
	case ProviderGmail, ProviderGmailUser, ProviderSendGrid, ProviderWebhook, ProviderAWSSES:
		return true
	default:
		return false
	}
}

// RetryConfig contains retry policy configuration.
type RetryConfig struct {
	// Enabled indicates whether retries are enabled.
	Enabled bool

	// MaxAttempts is the maximum number of retry attempts (including the initial attempt).
	MaxAttempts int

	// InitialDelay is the initial delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (should be > 1.0 for exponential backoff).
	Multiplier float64

	// Jitter indicates whether random jitter should be added to delays.
	Jitter bool
}

// DefaultConfig returns a configuration with sensible defaults.
// Retries stay off until enabled: failed sends surface immediately and
// the caller decides whether to retry.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			Timeout: 30 * time.Second,
		},
		Retry: DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Enabled:      false,
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Validate checks if the configuration is valid and complete.
func (c *Config) Validate() error {
	if !c.Provider.Type.Valid() {
		return &ValidationError{
			Field:   "provider.type",
			Message: "invalid or unsupported provider type: " + string(c.Provider.Type),
		}
	}

	if c.Provider.Timeout <= 0 {
		return &ValidationError{
			Field:   "provider.timeout",
			Message: "timeout must be greater than 0",
		}
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts < 1 {
			return &ValidationError{
				Field:   "retry.max_attempts",
				Message: "max attempts must be at least 1",
			}
		}
		if c.Retry.Multiplier <= 1.0 {
			return &ValidationError{
				Field:   "retry.multiplier",
				Message: "multiplier must be greater than 1.0",
			}
		}
	}

	return nil
}
