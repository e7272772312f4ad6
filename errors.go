package mailsend

import (
	"errors"
)

// Predefined sentinel errors for common cases.
var (
	// ErrInvalidConfiguration indicates invalid configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")
)

// RetryableError interface indicates whether an error can be retried.
type RetryableError interface {
	Retryable() bool
}
