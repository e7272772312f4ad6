package core

import (
	"context"
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// SentinelSelf is the from-address placeholder meaning "send as the
// authenticated identity". Providers that know their own identity (Gmail's
// "me") omit the From header entirely when they see it.
const SentinelSelf = "me"

// Provider defines the interface for email service providers.
// Implementations handle provider-specific transmission and lookup logic.
type Provider interface {
	// Send transmits a single email and returns the provider-assigned
	// identifiers. The returned error is one of the typed errors in this
	// package so callers can distinguish transient from permanent failures.
	Send(ctx context.Context, email *Email) (*SendResult, error)

	// GetMessage fetches provider-side details for a previously sent message.
	// Providers without a read API return UnsupportedOperationError.
	GetMessage(ctx context.Context, id string) (*MessageDetails, error)

	// ValidateConfig validates the provider configuration.
	ValidateConfig() error

	// Name returns the provider's name for identification and logging.
	Name() string
}

// ProviderSettings represents configuration settings for email providers.
type ProviderSettings map[string]string

// Get retrieves a configuration value by key.
func (ps ProviderSettings) Get(key string) string {
	return ps[key]
}

// Set sets a configuration value.
func (ps ProviderSettings) Set(key, value string) {
	ps[key] = value
}

// Email is a logical send request, independent of the provider that will
// ultimately transmit it.
type Email struct {
	To      string   `json:"to"`                // Primary recipient (required)
	Subject string   `json:"subject"`           // Subject line (required)
	Content string   `json:"content"`           // Body content (required)
	HTML    bool     `json:"isHtml"`            // true: text/html, false: text/plain
	From    string   `json:"from,omitempty"`    // Sender, or SentinelSelf
	Cc      []string `json:"cc,omitempty"`      // Carbon copy recipients
	Bcc     []string `json:"bcc,omitempty"`     // Blind carbon copy recipients
	ReplyTo string   `json:"replyTo,omitempty"` // Reply-To address
}

// Validate checks that the email has the required fields and that every
// address parses.
func (e *Email) Validate() error {
	if strings.TrimSpace(e.To) == "" {
		return &ValidationError{Field: "to", Message: "recipient is required"}
	}
	if _, err := mail.ParseAddress(e.To); err != nil {
		return &ValidationError{Field: "to", Message: "invalid recipient address", Value: e.To}
	}
	if strings.TrimSpace(e.Subject) == "" {
		return &ValidationError{Field: "subject", Message: "subject is required"}
	}
	if e.Content == "" {
		return &ValidationError{Field: "content", Message: "content is required"}
	}
	if e.From != "" && e.From != SentinelSelf {
		if _, err := mail.ParseAddress(e.From); err != nil {
			return &ValidationError{Field: "from", Message: "invalid sender address", Value: e.From}
		}
	}
	for i, cc := range e.Cc {
		if _, err := mail.ParseAddress(cc); err != nil {
			return &ValidationError{Field: "cc", Message: "invalid CC address at index " + strconv.Itoa(i), Value: cc}
		}
	}
	for i, bcc := range e.Bcc {
		if _, err := mail.ParseAddress(bcc); err != nil {
			return &ValidationError{Field: "bcc", Message: "invalid BCC address at index " + strconv.Itoa(i), Value: bcc}
		}
	}
	if e.ReplyTo != "" {
		if _, err := mail.ParseAddress(e.ReplyTo); err != nil {
			return &ValidationError{Field: "replyTo", Message: "invalid Reply-To address", Value: e.ReplyTo}
		}
	}
	return nil
}

// SendResult contains the provider-assigned identifiers for an accepted email.
// The identifiers are opaque: the core compares and displays them but never
// interprets provider-specific meaning.
type SendResult struct {
	// MessageID is the unique identifier assigned by the provider.
	MessageID string `json:"id"`

	// ThreadID is the provider's conversation/correlation identifier.
	// Empty for providers without threading.
	ThreadID string `json:"threadId,omitempty"`

	// Provider is the name of the provider that sent the email.
	Provider string `json:"provider"`

	// Timestamp when the email was accepted by the provider.
	Timestamp time.Time `json:"timestamp"`
}

// MessageDetails holds provider-side information about a sent message.
type MessageDetails struct {
	MessageID string   `json:"id"`
	ThreadID  string   `json:"threadId,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Snippet   string   `json:"snippet,omitempty"`
}
