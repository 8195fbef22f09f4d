package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureTokensIndex(t *testing.T) {
	t.Run("returns sequential indexes", func(t *testing.T) {
		var tokens FeatureTokens

		for i, id := range []string{"a", "b", "c", "d"} {
			require.Equal(t, uint64(i), tokens.Index(id))
		}
		require.Equal(t, 4, tokens.Len())
	})

	t.Run("returns the same index for a known id", func(t *testing.T) {
		var tokens FeatureTokens

		tokens.Index("a")
		tokens.Index("b")
		require.Equal(t, uint64(0), tokens.Index("a"))
		require.Equal(t, uint64(1), tokens.Index("b"))
		require.Equal(t, 2, tokens.Len())
	})
}

func TestFeatureTokensToken(t *testing.T) {
	var tokens FeatureTokens

	for i := 0; i < 40; i++ {
		tokens.Index(FormatToken(uint64(i + 1000)))
	}

	require.Equal(t, "0", tokens.Token(FormatToken(1000)))
	require.Equal(t, "a", tokens.Token(FormatToken(1010)))
	require.Equal(t, "10", tokens.Token(FormatToken(1036)))
}
