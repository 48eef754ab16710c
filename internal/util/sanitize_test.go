package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"go-fileops/pkg/fserr"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	t.Run("replaces invalid characters", func(t *testing.T) {
		actual, err := SanitizeFilename(` report<2026>?.pdf `)
		require.NoError(t, err)
		require.Equal(t, "report_2026__.pdf", actual)
	})

	t.Run("rejects empty filenames", func(t *testing.T) {
		_, err := SanitizeFilename("   ")
		require.Equal(t, fserr.InvalidPath, fserr.KindOf(err))
	})

	t.Run("keeps hidden filenames", func(t *testing.T) {
		actual, err := SanitizeFilename(".env")
		require.NoError(t, err)
		require.Equal(t, ".env", actual)
	})

	t.Run("prefixes windows reserved names", func(t *testing.T) {
		actual, err := SanitizeFilename("CON.txt")
		require.NoError(t, err)
		require.Equal(t, "_CON.txt", actual)
	})

	t.Run("strips invisible characters", func(t *testing.T) {
		actual, err := SanitizeFilename("a\u200bb.txt")
		require.NoError(t, err)
		require.Equal(t, "ab.txt", actual)
	})

	t.Run("truncates long filenames by rune", func(t *testing.T) {
		actual, err := SanitizeFilename(strings.Repeat("ж", 300) + ".txt")
		require.NoError(t, err)
		require.Len(t, []rune(actual), maxNameRunes)
		require.True(t, utf8.ValidString(actual))
	})
}

func TestStoreName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc_notes.txt", StoreName("abc", "notes.txt"))
	require.Equal(t, "abc_entry", StoreName("abc", ".."))
}
