// Package tokencache acquires and caches the short-lived bearer tokens
// obtained through the JWT-bearer grant. Signing and the token-endpoint round
// trip are amortized across requests by keeping the derived token in a shared
// key/value store until shortly before it expires.
package tokencache

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/szhangbiao/mailsend/internal/cache"
	"github.com/szhangbiao/mailsend/internal/core"
	"github.com/szhangbiao/mailsend/internal/jwtauth"
)

// refreshMargin is subtracted from a cached token's expiry before it is
// considered usable. It absorbs clock skew and in-flight request latency so a
// token never expires mid-request.
const refreshMargin = 30 * time.Second

const grantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// CachedToken is the stored shape of an exchanged access token.
// Entries are superseded by fresh ones on refresh, never mutated.
type CachedToken struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"` // epoch milliseconds
}

// Identity describes the signing identity a Source acquires tokens for.
// It determines both the claims of the assertion and the cache key, so
// distinct identities never collide in the shared store.
type Identity struct {
	// Issuer is the service-account client email.
	Issuer string

	// Subject is the optional impersonated user for domain-wide delegation.
	Subject string

	// Scope is the space-delimited permission string requested.
	Scope string

	// TokenURL is the token endpoint the signed assertion is exchanged at.
	TokenURL string
}

// CacheKey returns the identity-scoped cache key, prefixed so different
// providers sharing the store stay disjoint.
func (id Identity) CacheKey(prefix string) string {
	key := prefix + ":" + id.Issuer
	if id.Subject != "" {
		key += ":" + id.Subject
	}
	return key
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient sets the HTTP client used for the token exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		s.httpClient = c
	}
}

// WithSingleFlight de-duplicates concurrent refreshes per cache key. By
// default two callers racing past an expired entry both perform a token
// exchange, which is benign: both obtain valid tokens and the loser's write
// merely supersedes the winner's. Enable this only when the token endpoint
// rate-limits aggressively enough that the redundant exchange matters.
func WithSingleFlight() Option {
	return func(s *Source) {
		s.sf = &singleflight.Group{}
	}
}

// Source returns valid bearer tokens for one signing identity, refreshing
// through the JWT signer and token endpoint only when the cached entry is
// missing or inside the refresh margin.
type Source struct {
	identity   Identity
	key        *rsa.PrivateKey
	store      cache.Cache[CachedToken]
	prefix     string
	httpClient *http.Client
	sf         *singleflight.Group
	now        func() time.Time
}

// New creates a token source for the given identity. The prefix scopes cache
// keys in the shared store as "<prefix>:<issuer>[:<subject>]".
func New(identity Identity, key *rsa.PrivateKey, store cache.Cache[CachedToken], prefix string, opts ...Option) *Source {
	s := &Source{
		identity:   identity,
		key:        key,
		store:      store,
		prefix:     prefix,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns a valid access token, from cache when fresh enough, otherwise
// by signing a new assertion and exchanging it. Reads may observe a slightly
// stale-but-still-valid entry; writes are last-write-wins per key.
func (s *Source) Token(ctx context.Context) (string, error) {
	key := s.identity.CacheKey(s.prefix)

	if tok, err := s.store.Get(ctx, key); err == nil {
		if tok.ExpiresAt > s.now().Add(refreshMargin).UnixMilli() {
			return tok.AccessToken, nil
		}
	}

	if s.sf != nil {
		v, err, _ := s.sf.Do(key, func() (any, error) {
			return s.refresh(ctx, key)
		})
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}

	return s.refresh(ctx, key)
}

// refresh signs a fresh assertion, exchanges it, and persists the result with
// a store-level expiry matching the token lifetime so stale entries
// self-evict.
func (s *Source) refresh(ctx context.Context, key string) (string, error) {
	assertion, err := jwtauth.Generate(jwtauth.Claims{
		Issuer:   s.identity.Issuer,
		Scope:    s.identity.Scope,
		Audience: s.identity.TokenURL,
		Subject:  s.identity.Subject,
	}, s.key)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {grantType},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.identity.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &core.TokenExchangeError{Body: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if wrapped := core.WrapTimeout("token exchange", err); wrapped != err {
			return "", wrapped
		}
		return "", &core.TokenExchangeError{Body: "token endpoint unreachable", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &core.TokenExchangeError{StatusCode: resp.StatusCode, Body: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &core.TokenExchangeError{StatusCode: resp.StatusCode, Body: core.Preview(string(body))}
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &core.TokenExchangeError{StatusCode: resp.StatusCode, Body: core.Preview(string(body)), Cause: err}
	}
	if parsed.AccessToken == "" {
		return "", &core.TokenExchangeError{StatusCode: resp.StatusCode, Body: "response is missing access_token"}
	}

	entry := CachedToken{
		AccessToken: parsed.AccessToken,
		ExpiresAt:   s.now().UnixMilli() + parsed.ExpiresIn*1000,
	}

	// The store is a fast path, not the source of truth for this request:
	// a failed write costs a redundant exchange later, never a bad token now.
	_ = s.store.Set(ctx, key, entry, time.Duration(parsed.ExpiresIn)*time.Second)

	return parsed.AccessToken, nil
}
