package mailsend

import (
	"maps"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/szhangbiao/mailsend/internal/cache"
	"github.com/szhangbiao/mailsend/internal/tokencache"
)

// Option is a functional option for configuring the mailsend client.
type Option func(*Config)

// WithProvider sets the email provider type and its settings.
func WithProvider(providerType ProviderType, settings ProviderSettings) Option {
	return func(c *Config) {
		c.Provider.Type = providerType
		c.Provider.Primary = settings
	}
}

// WithFallbackProvider sets a fallback provider for redundancy.
func WithFallbackProvider(providerType ProviderType, settings ProviderSettings) Option {
	return func(c *Config) {
		fallbackSettings := maps.Clone(settings)
		if fallbackSettings == nil {
			fallbackSettings = ProviderSettings{}
		}
		fallbackSettings["type"] = string(providerType)
		c.Provider.Fallback = &fallbackSettings
	}
}

// WithTimeout sets the provider operation timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Provider.Timeout = timeout
	}
}

// WithTokenStore sets the cache backing access-token storage.
func WithTokenStore(store TokenStore) Option {
	return func(c *Config) {
		c.Provider.TokenStore = store
	}
}

// WithRedisTokenStore backs access-token storage with Redis so that
// tokens are shared across instances. Keys are namespaced under prefix.
func WithRedisTokenStore(client redis.UniversalClient, prefix string) Option {
	return func(c *Config) {
		c.Provider.TokenStore = cache.NewRedis[tokencache.CachedToken](client, prefix)
	}
}

// WithRetry configures retry behavior.
func WithRetry(maxAttempts int, initialDelay, maxDelay time.Duration, multiplier float64) Option {
	return func(c *Config) {
		c.Retry.Enabled = true
		c.Retry.MaxAttempts = maxAttempts
		c.Retry.InitialDelay = initialDelay
		c.Retry.MaxDelay = maxDelay
		c.Retry.Multiplier = multiplier
	}
}

// WithJitter enables or disables jitter in retry delays.
func WithJitter(enabled bool) Option {
	return func(c *Config) {
		c.Retry.Jitter = enabled
	}
}

// WithoutRetry disables retry functionality.
func WithoutRetry() Option {
	return func(c *Config) {
		c.Retry.Enabled = false
	}
}

// WithGmail creates a Gmail service-account provider configuration.
// privateKey is the PEM-encoded PKCS#8 key from the service account's
// JSON credentials; literal "\n" sequences in it are tolerated.
func WithGmail(clientEmail, privateKey string) Option {
	return WithProvider(ProviderGmail, ProviderSettings{
		"client_email": clientEmail,
		"private_key":  privateKey,
	})
}

// WithGmailDelegated creates a Gmail service-account provider
// configuration that impersonates subject via domain-wide delegation.
func WithGmailDelegated(clientEmail, privateKey, subject string) Option {
	return WithProvider(ProviderGmail, ProviderSettings{
		"client_email": clientEmail,
		"private_key":  privateKey,
		"subject":      subject,
	})
}

// WithGmailUser creates a Gmail provider configuration for a user who
// granted an OAuth refresh token.
func WithGmailUser(clientID, clientSecret, refreshToken string) Option {
	return WithProvider(ProviderGmailUser, ProviderSettings{
		"client_id":     clientID,
		"client_secret": clientSecret,
		"refresh_token": refreshToken,
	})
}

// WithSendGrid creates a SendGrid provider configuration.
func WithSendGrid(apiKey, from string) Option {
	return WithProvider(ProviderSendGrid, ProviderSettings{
		"api_key": apiKey,
		"from":    from,
	})
}

// WithWebhook creates a webhook provider configuration forwarding
// messages to the given endpoint.
func WithWebhook(url string) Option {
	return WithProvider(ProviderWebhook, ProviderSettings{
		"url": url,
	})
}

// WithAWSSES creates an AWS SES provider configuration.
func WithAWSSES(region, from string) Option {
	return WithProvider(ProviderAWSSES, ProviderSettings{
		"region": region,
		"from":   from,
	})
}

// WithAWSSESCredentials creates an AWS SES provider configuration with explicit credentials.
func WithAWSSESCredentials(region, from, accessKey, secretKey string) Option {
	return WithProvider(ProviderAWSSES, ProviderSettings{
		"region":     region,
		"from":       from,
		"access_key": accessKey,
		"secret_key": secretKey,
	})
}
