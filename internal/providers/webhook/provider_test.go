package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/szhangbiao/mailsend/internal/core"
)

func endpoint(t *testing.T, status int, body string) *Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	p, err := NewProvider(core.ProviderSettings{"url": srv.URL})
	require.NoError(t, err)
	return p
}

var testEmail = &core.Email{To: "a@example.com", Subject: "Hi", Content: "Hello"}

func TestNewProviderRejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "not-a-url", "ftp://example.com/hook"} {
		_, err := NewProvider(core.ProviderSettings{"url": u})
		require.Error(t, err, "url %q", u)
	}
}

func TestSendForwardsRequest(t *testing.T) {
	t.Parallel()

	var got core.Email
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"wh-1","threadId":"wh-t-1"}`))
	}))
	t.Cleanup(srv.Close)

	p, err := NewProvider(core.ProviderSettings{"url": srv.URL})
	require.NoError(t, err)

	result, err := p.Send(context.Background(), testEmail)
	require.NoError(t, err)
	require.Equal(t, "wh-1", result.MessageID)
	require.Equal(t, "wh-t-1", result.ThreadID)
	require.Equal(t, "webhook", result.Provider)
	require.Equal(t, testEmail.To, got.To)
	require.Equal(t, testEmail.Subject, got.Subject)
}

func TestSendNon2xxIsTransportError(t *testing.T) {
	t.Parallel()

	p := endpoint(t, http.StatusBadGateway, "upstream broken")

	_, err := p.Send(context.Background(), testEmail)
	var te *core.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusBadGateway, te.StatusCode)
	require.True(t, core.IsRetryable(err))
}

func TestSendEmptyBody(t *testing.T) {
	t.Parallel()

	p := endpoint(t, http.StatusOK, "")

	_, err := p.Send(context.Background(), testEmail)
	require.ErrorIs(t, err, &core.EmptyResponseError{})
}

func TestSendNonJSONBody(t *testing.T) {
	t.Parallel()

	p := endpoint(t, http.StatusOK, "<html>definitely not json</html>")

	_, err := p.Send(context.Background(), testEmail)
	var ire *core.InvalidResponseError
	require.ErrorAs(t, err, &ire)
	require.Empty(t, ire.Field)
	require.Contains(t, ire.Preview, "definitely not json")
}

func TestSendMissingThreadID(t *testing.T) {
	t.Parallel()

	p := endpoint(t, http.StatusOK, `{"id":"x"}`)

	_, err := p.Send(context.Background(), testEmail)
	var ire *core.InvalidResponseError
	require.ErrorAs(t, err, &ire)
	require.Equal(t, "threadId", ire.Field)
}

func TestSendMissingID(t *testing.T) {
	t.Parallel()

	p := endpoint(t, http.StatusOK, `{"threadId":"x"}`)

	_, err := p.Send(context.Background(), testEmail)
	var ire *core.InvalidResponseError
	require.ErrorAs(t, err, &ire)
	require.Equal(t, "id", ire.Field)
}

func TestGetMessageUnsupported(t *testing.T) {
	t.Parallel()

	p := endpoint(t, http.StatusOK, "{}")

	_, err := p.GetMessage(context.Background(), "any")
	require.ErrorIs(t, err, &core.UnsupportedOperationError{})
}
