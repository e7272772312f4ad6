// Package webhook implements a forwarding provider: the logical send request
// is relayed as JSON to an externally configured URL, and that endpoint's
// response supplies the provider identifiers. No token is involved; the
// endpoint is trusted but its response is strictly validated.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/szhangbiao/mailsend/internal/core"
)

// Provider implements core.Provider by relaying to a webhook URL.
type Provider struct {
	url        string
	httpClient *http.Client
	config     core.ProviderSettings
}

// NewProvider creates a new webhook provider. Required settings: "url"
// (HTTP/HTTPS endpoint the send request is forwarded to).
func NewProvider(settings core.ProviderSettings) (*Provider, error) {
	endpoint := settings.Get("url")
	if endpoint == "" {
		return nil, &core.ValidationError{Field: "url", Message: "webhook URL is required"}
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &core.ValidationError{Field: "url", Message: "webhook URL must be a valid HTTP/HTTPS URL", Value: endpoint}
	}

	return &Provider{
		url:        endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     settings,
	}, nil
}

// Send forwards the logical request and maps the webhook's JSON response to a
// SendResult. Violations of the response contract surface as typed errors so
// integration bugs are distinguishable from transport failures.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	payload, err := json.Marshal(email)
	if err != nil {
		return nil, &core.TransportError{Provider: p.Name(), Message: "failed to encode payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &core.TransportError{Provider: p.Name(), Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if wrapped := core.WrapTimeout("webhook send", err); wrapped != err {
			return nil, wrapped
		}
		return nil, &core.TransportError{Provider: p.Name(), Message: "webhook unreachable", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.TransportError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.TransportError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Message:    core.Preview(string(body)),
			Permanent:  resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests,
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &core.EmptyResponseError{Provider: p.Name()}
	}

	var parsed struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &core.InvalidResponseError{Provider: p.Name(), Preview: core.Preview(string(body)), Cause: err}
	}
	if parsed.ID == "" {
		return nil, &core.InvalidResponseError{Provider: p.Name(), Field: "id", Preview: core.Preview(string(body))}
	}
	if parsed.ThreadID == "" {
		return nil, &core.InvalidResponseError{Provider: p.Name(), Field: "threadId", Preview: core.Preview(string(body))}
	}

	return &core.SendResult{
		MessageID: parsed.ID,
		ThreadID:  parsed.ThreadID,
		Provider:  p.Name(),
		Timestamp: time.Now(),
	}, nil
}

// GetMessage is not part of the webhook contract.
func (p *Provider) GetMessage(_ context.Context, _ string) (*core.MessageDetails, error) {
	return nil, &core.UnsupportedOperationError{Provider: p.Name(), Operation: "getMessageDetails"}
}

// ValidateConfig validates the provider configuration.
func (p *Provider) ValidateConfig() error {
	if p.config.Get("url") == "" {
		return &core.ValidationError{Field: "url", Message: "webhook URL is required"}
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "webhook"
}

var _ core.Provider = (*Provider)(nil)
