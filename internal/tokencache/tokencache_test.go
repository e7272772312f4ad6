package tokencache

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/szhangbiao/mailsend/internal/cache"
	"github.com/szhangbiao/mailsend/internal/core"
)

func testIdentity(tokenURL string) Identity {
	return Identity{
		Issuer:   "svc@project.iam.gserviceaccount.com",
		Scope:    "https://www.googleapis.com/auth/gmail.send",
		TokenURL: tokenURL,
	}
}

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func tokenEndpoint(t *testing.T, calls *atomic.Int64, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostFormValue("grant_type"))
		require.NotEmpty(t, r.PostFormValue("assertion"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestToken_FreshCacheHitSkipsExchange(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := tokenEndpoint(t, &calls, http.StatusOK, `{"access_token":"fresh","expires_in":3600}`)

	store := cache.NewMemory[CachedToken]()
	defer store.Close()

	id := testIdentity(srv.URL)
	src := New(id, testKey(t), store, "gmail-sa")

	ctx := context.Background()
	cached := CachedToken{AccessToken: "cached", ExpiresAt: time.Now().UnixMilli() + 40_000}
	require.NoError(t, store.Set(ctx, id.CacheKey("gmail-sa"), cached, time.Minute))

	tok, err := src.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "cached", tok)
	require.Equal(t, int64(0), calls.Load())
}

func TestToken_NearExpiryRefreshes(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := tokenEndpoint(t, &calls, http.StatusOK, `{"access_token":"refreshed","expires_in":3600,"token_type":"Bearer"}`)

	store := cache.NewMemory[CachedToken]()
	defer store.Close()

	id := testIdentity(srv.URL)
	src := New(id, testKey(t), store, "gmail-sa")

	ctx := context.Background()
	// 10s left is inside the 30s refresh margin.
	stale := CachedToken{AccessToken: "stale", ExpiresAt: time.Now().UnixMilli() + 10_000}
	require.NoError(t, store.Set(ctx, id.CacheKey("gmail-sa"), stale, time.Minute))

	tok, err := src.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "refreshed", tok)
	require.Equal(t, int64(1), calls.Load())

	// The refreshed entry supersedes the stale one in the store.
	entry, err := store.Get(ctx, id.CacheKey("gmail-sa"))
	require.NoError(t, err)
	require.Equal(t, "refreshed", entry.AccessToken)
	require.Greater(t, entry.ExpiresAt, time.Now().UnixMilli()+3_000_000)
}

func TestToken_MissFetchesOnceThenReuses(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := tokenEndpoint(t, &calls, http.StatusOK, `{"access_token":"minted","expires_in":3600}`)

	store := cache.NewMemory[CachedToken]()
	defer store.Close()

	src := New(testIdentity(srv.URL), testKey(t), store, "gmail-sa")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tok, err := src.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "minted", tok)
	}
	require.Equal(t, int64(1), calls.Load())
}

func TestToken_ExchangeFailureCarriesBody(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := tokenEndpoint(t, &calls, http.StatusBadRequest, `{"error":"invalid_grant"}`)

	store := cache.NewMemory[CachedToken]()
	defer store.Close()

	src := New(testIdentity(srv.URL), testKey(t), store, "gmail-sa")

	_, err := src.Token(context.Background())
	var tee *core.TokenExchangeError
	require.ErrorAs(t, err, &tee)
	require.Equal(t, http.StatusBadRequest, tee.StatusCode)
	require.Contains(t, tee.Body, "invalid_grant")
	require.True(t, core.IsRetryable(err))
}

func TestToken_SlowEndpointReturnsRetryableTimeout(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access_token":"late","expires_in":3600}`))
	}))
	t.Cleanup(slow.Close)

	store := cache.NewMemory[CachedToken]()
	defer store.Close()

	src := New(testIdentity(slow.URL), testKey(t), store, "gmail-sa")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := src.Token(ctx)
	var te *core.TimeoutError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "token exchange", te.Op)
	require.True(t, core.IsRetryable(err))
}

func TestToken_DistinctIdentitiesDoNotCollide(t *testing.T) {
	t.Parallel()

	id := Identity{Issuer: "a@sa.example.com", Scope: "s", TokenURL: "https://token.example.com"}
	other := Identity{Issuer: "a@sa.example.com", Subject: "user@example.com", Scope: "s", TokenURL: "https://token.example.com"}

	require.NotEqual(t, id.CacheKey("gmail-sa"), other.CacheKey("gmail-sa"))
	require.Equal(t, "gmail-sa:a@sa.example.com", id.CacheKey("gmail-sa"))
	require.Equal(t, "gmail-sa:a@sa.example.com:user@example.com", other.CacheKey("gmail-sa"))
}

func TestToken_SingleFlightDeduplicatesRefresh(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access_token":"minted","expires_in":3600}`))
	}))
	t.Cleanup(slow.Close)

	store := cache.NewMemory[CachedToken]()
	defer store.Close()

	src := New(testIdentity(slow.URL), testKey(t), store, "gmail-sa", WithSingleFlight())

	ctx := context.Background()
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := src.Token(ctx)
			results <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-results)
	}
	require.Equal(t, int64(1), calls.Load())
}
