package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercehq/staff-access-service/internal/auth"
)

func TestNewSessionToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := auth.NewSessionToken()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(token, "sst_"))
		assert.Len(t, token, len("sst_")+64)
		assert.True(t, auth.LooksLikeSessionToken(token))
		assert.False(t, seen[token], "tokens must never repeat")
		seen[token] = true
	}
}

func TestLooksLikeSessionToken(t *testing.T) {
	token, err := auth.NewSessionToken()
	require.NoError(t, err)

	assert.True(t, auth.LooksLikeSessionToken(token))
	assert.False(t, auth.LooksLikeSessionToken(""))
	assert.False(t, auth.LooksLikeSessionToken("sst_"))
	assert.False(t, auth.LooksLikeSessionToken(token[:len(token)-1]))
	assert.False(t, auth.LooksLikeSessionToken(token+"0"))
	assert.False(t, auth.LooksLikeSessionToken("xxx_"+token[4:]))
}
