package core

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestPreviewBoundsAndFlattens(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short body", Preview("  short body\r\n"))

	long := strings.Repeat("x", previewLimit+50)
	got := Preview(long)
	require.Equal(t, strings.Repeat("x", previewLimit)+"...", got)
}

func TestPreviewCutsOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// Three-byte runes placed so the byte limit lands mid-rune.
	long := strings.Repeat("界", previewLimit)
	got := Preview(long)
	require.True(t, utf8.ValidString(got))
	require.True(t, strings.HasSuffix(got, "..."))
	require.LessOrEqual(t, len(got), previewLimit+3)
}
