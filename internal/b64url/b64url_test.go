package b64url_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/szhangbiao/mailsend/internal/b64url"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	cases := [][]byte{
		nil,
		{},
		[]byte("f"),
		[]byte("fo"),
		[]byte("foo"),
		[]byte("foob"),
		[]byte("hello, world"),
		[]byte("日本語テキスト"),
		[]byte("héllo wörld ✉"),
		{0x00, 0xff, 0xfe, 0x01, 0x80, 0x7f},
	}

	for _, in := range cases {
		encoded := b64url.Encode(in)
		decoded, err := b64url.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, append([]byte(nil), in...), append([]byte(nil), decoded...))
	}
}

func TestEncodeAlphabet(t *testing.T) {
	t.Parallel()

	// Bytes chosen to produce '+' and '/' in the standard alphabet.
	encoded := b64url.Encode([]byte{0xfb, 0xef, 0xbe})
	require.NotContains(t, encoded, "+")
	require.NotContains(t, encoded, "/")
	require.NotContains(t, encoded, "=")
	require.Equal(t, "----", encoded)
}

func TestDecodeRejectsInvalidCharacters(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"ab+c", "ab/c", "ab=c", "ab c", "ab\nc"} {
		_, err := b64url.Decode(in)
		require.Error(t, err)
		require.ErrorIs(t, err, &b64url.DecodeError{})
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	t.Parallel()

	// A single base64url character can never represent whole bytes.
	_, err := b64url.Decode("A")
	require.Error(t, err)
	require.ErrorIs(t, err, &b64url.DecodeError{})
}

func TestEncodeStringOperatesOnBytes(t *testing.T) {
	t.Parallel()

	in := "Grüße 👋"
	out, err := b64url.DecodeString(b64url.EncodeString(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.True(t, strings.HasPrefix(out, "Grüße"))
}
