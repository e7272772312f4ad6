// Package gmail implements the Gmail-style raw-message send API, in two
// variants that differ only in where the bearer token comes from: a
// Service-Account variant backed by the JWT-bearer flow and shared token
// cache, and a user-OAuth variant backed by a refresh-token source.
package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/szhangbiao/mailsend/internal/cache"
	"github.com/szhangbiao/mailsend/internal/core"
	"github.com/szhangbiao/mailsend/internal/jwtauth"
	"github.com/szhangbiao/mailsend/internal/message"
	"github.com/szhangbiao/mailsend/internal/tokencache"
)

const (
	// DefaultTokenURL is Google's OAuth2 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// DefaultAPIBase is the Gmail REST API base for the authenticated user.
	DefaultAPIBase = "https://gmail.googleapis.com/gmail/v1"

	// ScopeSend is the permission requested for service-account assertions.
	ScopeSend = "https://www.googleapis.com/auth/gmail.send"

	cachePrefix = "gmail-sa"
)

// TokenSource supplies a valid bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Provider implements core.Provider against a Gmail-style send endpoint.
type Provider struct {
	name       string
	apiBase    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewServiceAccount creates the Service-Account variant. Required settings:
// "client_email" (issuer) and "private_key" (PEM-armored PKCS#8, literal \n
// escapes tolerated). Optional: "subject" for domain-wide delegation,
// "token_url" and "api_base" overrides for testing. The store holds exchanged
// tokens keyed by signing identity.
func NewServiceAccount(settings core.ProviderSettings, store cache.Cache[tokencache.CachedToken]) (*Provider, error) {
	issuer := settings.Get("client_email")
	if issuer == "" {
		return nil, &core.ValidationError{Field: "client_email", Message: "service account client email is required"}
	}

	key, err := jwtauth.ParsePrivateKey(settings.Get("private_key"))
	if err != nil {
		return nil, err
	}

	tokenURL := settings.Get("token_url")
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	source := tokencache.New(tokencache.Identity{
		Issuer:   issuer,
		Subject:  settings.Get("subject"),
		Scope:    ScopeSend,
		TokenURL: tokenURL,
	}, key, store, cachePrefix, tokencache.WithHTTPClient(httpClient))

	return &Provider{
		name:       "gmail",
		apiBase:    apiBase(settings),
		tokens:     source,
		httpClient: httpClient,
	}, nil
}

// NewUser creates the user-OAuth variant. Required settings: "client_id",
// "client_secret", "refresh_token". Tokens are refreshed and cached in
// process memory by the oauth2 reuse source; no KV layer is involved.
func NewUser(settings core.ProviderSettings) (*Provider, error) {
	for _, field := range []string{"client_id", "client_secret", "refresh_token"} {
		if settings.Get(field) == "" {
			return nil, &core.ValidationError{Field: field, Message: field + " is required"}
		}
	}

	tokenURL := settings.Get("token_url")
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	conf := &oauth2.Config{
		ClientID:     settings.Get("client_id"),
		ClientSecret: settings.Get("client_secret"),
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	source := conf.TokenSource(context.Background(), &oauth2.Token{
		RefreshToken: settings.Get("refresh_token"),
	})

	return &Provider{
		name:       "gmail_user",
		apiBase:    apiBase(settings),
		tokens:     oauthTokenSource{source},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func apiBase(settings core.ProviderSettings) string {
	if base := settings.Get("api_base"); base != "" {
		return base
	}
	return DefaultAPIBase
}

// oauthTokenSource adapts an oauth2.TokenSource to the context-aware
// TokenSource shape shared with the service-account flow.
type oauthTokenSource struct {
	src oauth2.TokenSource
}

func (s oauthTokenSource) Token(_ context.Context) (string, error) {
	tok, err := s.src.Token()
	if err != nil {
		return "", &core.TokenExchangeError{Body: "oauth token refresh failed", Cause: err}
	}
	return tok.AccessToken, nil
}

// Send composes the email, obtains a bearer token, and POSTs the Base64URL
// raw-message envelope to the send endpoint.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.SendResult, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{
		"raw": message.Compose(email).Envelope(),
	})
	if err != nil {
		return nil, &core.TransportError{Provider: p.name, Message: "failed to encode payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/users/me/messages/send", bytes.NewReader(payload))
	if err != nil {
		return nil, &core.TransportError{Provider: p.name, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	body, _, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &core.InvalidResponseError{Provider: p.name, Preview: core.Preview(string(body)), Cause: err}
	}
	if parsed.ID == "" {
		return nil, &core.InvalidResponseError{Provider: p.name, Field: "id", Preview: core.Preview(string(body))}
	}

	return &core.SendResult{
		MessageID: parsed.ID,
		ThreadID:  parsed.ThreadID,
		Provider:  p.name,
		Timestamp: time.Now(),
	}, nil
}

// GetMessage fetches message details from the Gmail read API.
func (p *Provider) GetMessage(ctx context.Context, id string) (*core.MessageDetails, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/users/me/messages/"+id, nil)
	if err != nil {
		return nil, &core.TransportError{Provider: p.name, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, _, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ID       string   `json:"id"`
		ThreadID string   `json:"threadId"`
		LabelIDs []string `json:"labelIds"`
		Snippet  string   `json:"snippet"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &core.InvalidResponseError{Provider: p.name, Preview: core.Preview(string(body)), Cause: err}
	}

	return &core.MessageDetails{
		MessageID: parsed.ID,
		ThreadID:  parsed.ThreadID,
		Labels:    parsed.LabelIDs,
		Snippet:   parsed.Snippet,
	}, nil
}

// do executes the request and maps transport-level failures to the shared
// error taxonomy. 4xx statuses other than timeout/rate-limit are permanent.
func (p *Provider) do(req *http.Request) ([]byte, int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		if wrapped := core.WrapTimeout(p.name+" request", err); wrapped != err {
			return nil, 0, wrapped
		}
		return nil, 0, &core.TransportError{Provider: p.name, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &core.TransportError{Provider: p.name, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &core.TransportError{
			Provider:   p.name,
			StatusCode: resp.StatusCode,
			Message:    core.Preview(string(body)),
			Permanent:  isPermanentStatus(resp.StatusCode),
		}
	}

	return body, resp.StatusCode, nil
}

// isPermanentStatus reports whether a status indicates a rejection that
// retrying cannot fix (e.g. invalid recipient). Request timeouts and rate
// limits stay retryable.
func isPermanentStatus(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}

// ValidateConfig validates the provider configuration.
func (p *Provider) ValidateConfig() error {
	if p.tokens == nil {
		return &core.ValidationError{Field: "tokens", Message: "token source is not configured"}
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

var _ core.Provider = (*Provider)(nil)
