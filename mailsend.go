package mailsend

import (
	"context"

	"github.com/szhangbiao/mailsend/internal/cache"
	"github.com/szhangbiao/mailsend/internal/core"
	"github.com/szhangbiao/mailsend/internal/tokencache"
)

// Public interfaces for the mailsend library
type (
	// Mailer defines the core email sending interface.
	// All methods are safe for concurrent use.
	Mailer interface {
		// Send sends a single email and returns the provider-assigned
		// message identifiers.
		Send(ctx context.Context, email *Email) (*SendResult, error)

		// GetMessage retrieves a previously sent message by its provider id.
		// Providers without a read API return an UnsupportedOperationError.
		GetMessage(ctx context.Context, id string) (*MessageDetails, error)

		// Close closes the mailer and releases any resources.
		// After calling Close, the mailer should not be used.
		Close() error
	}
)

// Type aliases to re-export core types for the public API.
// This allows users to access types like mailsend.Email instead of core.Email,
// maintaining a clean public interface while keeping implementation details internal.
type (
	Provider         = core.Provider
	ProviderSettings = core.ProviderSettings
	Email            = core.Email
	SendResult       = core.SendResult
	MessageDetails   = core.MessageDetails

	ValidationError           = core.ValidationError
	KeyFormatError            = core.KeyFormatError
	SigningError              = core.SigningError
	TokenExchangeError        = core.TokenExchangeError
	TransportError            = core.TransportError
	EmptyResponseError        = core.EmptyResponseError
	InvalidResponseError      = core.InvalidResponseError
	UnsupportedOperationError = core.UnsupportedOperationError
	TimeoutError              = core.TimeoutError

	// TokenStore is the cache backing access-token storage for providers
	// that mint their own OAuth tokens.
	TokenStore = cache.Cache[tokencache.CachedToken]

	// CachedToken is a cached access token with its expiry timestamp.
	CachedToken = tokencache.CachedToken
)

// SentinelSelf is the "me" sender value: the provider substitutes the
// authenticated account's own address and no From header is emitted.
const SentinelSelf = core.SentinelSelf

// IsRetryable reports whether an error is worth retrying.
var IsRetryable = core.IsRetryable
