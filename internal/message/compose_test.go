package message_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/szhangbiao/mailsend/internal/b64url"
	"github.com/szhangbiao/mailsend/internal/core"
	"github.com/szhangbiao/mailsend/internal/message"
)

func TestCompose_PlainText(t *testing.T) {
	t.Parallel()

	c := message.Compose(&core.Email{
		To:      "a@example.com",
		Subject: "Hi",
		Content: "Hello",
	})

	require.Equal(t, "a@example.com", c.Header("To"))
	require.Equal(t, "Hi", c.Header("Subject"))
	require.Equal(t, "text/plain; charset=utf-8", c.Header("Content-Type"))
	require.Equal(t, "1.0", c.Header("MIME-Version"))
	require.Equal(t, "base64", c.Header("Content-Transfer-Encoding"))
	require.Empty(t, c.Header("From"))

	body, err := base64.StdEncoding.DecodeString(c.Body)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(body))
}

func TestCompose_HTMLContentType(t *testing.T) {
	t.Parallel()

	c := message.Compose(&core.Email{
		To:      "a@example.com",
		Subject: "Hi",
		Content: "<h1>Hello</h1>",
		HTML:    true,
	})
	require.Equal(t, "text/html; charset=utf-8", c.Header("Content-Type"))
}

func TestCompose_HeaderOrderAndSeparator(t *testing.T) {
	t.Parallel()

	c := message.Compose(&core.Email{
		To:      "a@example.com",
		Subject: "Hi",
		Content: "Hello",
		From:    "sender@example.com",
		Cc:      []string{"b@example.com", "c@example.com"},
		Bcc:     []string{"d@example.com"},
		ReplyTo: "reply@example.com",
	})

	rendered := c.String()
	lines := strings.Split(rendered, "\r\n")
	require.Equal(t, []string{
		"To: a@example.com",
		"Subject: Hi",
		"From: sender@example.com",
		"Cc: b@example.com, c@example.com",
		"Bcc: d@example.com",
		"Reply-To: reply@example.com",
		"Content-Type: text/plain; charset=utf-8",
		"MIME-Version: 1.0",
		"Content-Transfer-Encoding: base64",
	}, lines[:9])

	// Exactly one blank line between header block and body.
	require.Equal(t, "", lines[9])
	require.NotEmpty(t, lines[10])
	require.Len(t, lines, 11)
}

func TestCompose_SelfSentinelOmitsFrom(t *testing.T) {
	t.Parallel()

	c := message.Compose(&core.Email{
		To:      "a@example.com",
		Subject: "Hi",
		Content: "Hello",
		From:    core.SentinelSelf,
	})
	require.NotContains(t, c.String(), "From:")
}

func TestCompose_SubjectEncoding(t *testing.T) {
	t.Parallel()

	t.Run("ascii passes through", func(t *testing.T) {
		c := message.Compose(&core.Email{To: "a@example.com", Subject: "Plain ASCII!", Content: "x"})
		require.Equal(t, "Plain ASCII!", c.Header("Subject"))
	})

	t.Run("non-ascii is encoded-word wrapped", func(t *testing.T) {
		subject := "こんにちは — Grüße"
		c := message.Compose(&core.Email{To: "a@example.com", Subject: subject, Content: "x"})

		encoded := c.Header("Subject")
		require.True(t, strings.HasPrefix(encoded, "=?UTF-8?B?"))
		require.True(t, strings.HasSuffix(encoded, "?="))

		inner := strings.TrimSuffix(strings.TrimPrefix(encoded, "=?UTF-8?B?"), "?=")
		decoded, err := base64.StdEncoding.DecodeString(inner)
		require.NoError(t, err)
		require.Equal(t, subject, string(decoded))
	})
}

func TestEnvelopeRoundTrips(t *testing.T) {
	t.Parallel()

	c := message.Compose(&core.Email{To: "a@example.com", Subject: "Hi", Content: "Hello ✉"})

	raw, err := b64url.DecodeString(c.Envelope())
	require.NoError(t, err)
	require.Equal(t, c.String(), raw)
}
