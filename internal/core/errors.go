package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// previewLimit bounds raw response excerpts embedded in errors so diagnostics
// never dump unbounded (or sensitive) payloads into logs.
const previewLimit = 256

// Preview returns a bounded, single-line excerpt of a raw response body
// suitable for embedding in error messages.
func Preview(body string) string {
	s := strings.TrimSpace(body)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > previewLimit {
		cut := previewLimit
		// Never split a multi-byte rune at the cut point.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

// ValidationError represents a request validation failure with specific field
// information.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error in %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Is implements error matching for errors.Is.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// KeyFormatError indicates a malformed signing key. Fatal: retrying cannot
// repair a bad key, the operator has to fix the configuration.
type KeyFormatError struct {
	// Reason distinguishes the failure mode: "empty", "invalid base64",
	// "import rejected". Kept separate from Message so callers can branch.
	Reason  string
	Message string
	Cause   error
}

func (e *KeyFormatError) Error() string {
	return fmt.Sprintf("key format error (%s): %s", e.Reason, e.Message)
}

func (e *KeyFormatError) Unwrap() error { return e.Cause }

// Is implements error matching for errors.Is.
func (e *KeyFormatError) Is(target error) bool {
	_, ok := target.(*KeyFormatError)
	return ok
}

// SigningError indicates a cryptographic failure while producing a JWT. Fatal.
type SigningError struct {
	Message string
	Cause   error
}

func (e *SigningError) Error() string {
	return "signing error: " + e.Message
}

func (e *SigningError) Unwrap() error { return e.Cause }

// Is implements error matching for errors.Is.
func (e *SigningError) Is(target error) bool {
	_, ok := target.(*SigningError)
	return ok
}

// TokenExchangeError indicates the token endpoint rejected the assertion or
// was unreachable. Transient: safe to retry with backoff.
type TokenExchangeError struct {
	// StatusCode is the HTTP status returned by the token endpoint,
	// 0 when the request never completed.
	StatusCode int

	// Body is a bounded excerpt of the token endpoint response for diagnosis.
	Body string

	Cause error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("token exchange failed (status: %d): %s", e.StatusCode, e.Body)
	}
	return "token exchange failed: " + e.Body
}

func (e *TokenExchangeError) Unwrap() error { return e.Cause }

// Is implements error matching for errors.Is.
func (e *TokenExchangeError) Is(target error) bool {
	_, ok := target.(*TokenExchangeError)
	return ok
}

// Retryable implements RetryableError.
func (e *TokenExchangeError) Retryable() bool { return true }

// TransportError indicates a provider send failed. Transient unless the
// provider response indicates a permanent rejection.
type TransportError struct {
	Provider   string
	StatusCode int
	Message    string
	Permanent  bool
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s transport error (status: %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s transport error: %s", e.Provider, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Is implements error matching for errors.Is.
func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// Retryable implements RetryableError.
func (e *TransportError) Retryable() bool { return !e.Permanent }

// EmptyResponseError indicates a provider returned a success status with no
// body where the contract requires one.
type EmptyResponseError struct {
	Provider string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("provider %s returned an empty response body", e.Provider)
}

// Is implements error matching for errors.Is.
func (e *EmptyResponseError) Is(target error) bool {
	_, ok := target.(*EmptyResponseError)
	return ok
}

// InvalidResponseError indicates a provider response violates the expected
// contract: not JSON, or missing required identifier fields. Surfaced as a
// configuration/integration bug rather than retried.
type InvalidResponseError struct {
	Provider string

	// Field names the missing identifier field, empty when the body was not
	// parseable at all.
	Field string

	// Preview is a bounded excerpt of the raw body for diagnosis.
	Preview string

	Cause error
}

func (e *InvalidResponseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("provider %s response is missing required field %q", e.Provider, e.Field)
	}
	return fmt.Sprintf("provider %s returned a non-JSON response: %s", e.Provider, e.Preview)
}

func (e *InvalidResponseError) Unwrap() error { return e.Cause }

// Is implements error matching for errors.Is.
func (e *InvalidResponseError) Is(target error) bool {
	_, ok := target.(*InvalidResponseError)
	return ok
}

// UnsupportedOperationError indicates the selected provider does not implement
// a requested capability. Always fatal for that call.
type UnsupportedOperationError struct {
	Provider  string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Operation)
}

// Is implements error matching for errors.Is.
func (e *UnsupportedOperationError) Is(target error) bool {
	_, ok := target.(*UnsupportedOperationError)
	return ok
}

// TimeoutError indicates a network call exceeded its deadline. Transient: the
// caller may retry. The core performs no automatic retries itself.
type TimeoutError struct {
	Op    string
	Cause error
}

func (e *TimeoutError) Error() string {
	return "timeout during " + e.Op
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// Is implements error matching for errors.Is.
func (e *TimeoutError) Is(target error) bool {
	_, ok := target.(*TimeoutError)
	return ok
}

// Retryable implements RetryableError.
func (e *TimeoutError) Retryable() bool { return true }

// RetryableError interface indicates whether an error can be retried.
type RetryableError interface {
	Retryable() bool
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return false
}

// WrapTimeout converts a context deadline failure into a TimeoutError and
// passes every other error through unchanged.
func WrapTimeout(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Cause: err}
	}
	return err
}
