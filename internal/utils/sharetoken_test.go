package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShareToken(t *testing.T) {
	tok, err := NewShareToken()
	require.NoError(t, err)

	// 16 bytes -> 22 chars of unpadded base64url.
	assert.Len(t, tok, 22)
	assert.NotContains(t, tok, "=")
	assert.NotContains(t, tok, "+")
	assert.NotContains(t, tok, "/")
}

func TestNewShareTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewShareToken()
		require.NoError(t, err)
		assert.False(t, seen[tok], "duplicate token %q", tok)
		seen[tok] = true
	}
}
