package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", "attendance-api", 12)

	token, err := tm.GenerateToken("session-abc")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-abc", claims.SessionID)
	assert.Equal(t, "attendance-api", claims.Issuer)
	assert.Equal(t, "session-abc", claims.Subject)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", "attendance-api", 12)
	other := NewTokenManager("secret-b", "attendance-api", 12)

	token, err := tm.GenerateToken("session-abc")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Garbage(t *testing.T) {
	tm := NewTokenManager("secret", "attendance-api", 12)

	_, err := tm.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestTokenManager_GetExpirationTime(t *testing.T) {
	tm := NewTokenManager("secret", "attendance-api", 12)
	assert.Equal(t, 12*time.Hour, tm.GetExpirationTime())
}

func TestTimingSafeCompare(t *testing.T) {
	assert.True(t, TimingSafeCompare("abc", "abc"))
	assert.False(t, TimingSafeCompare("abc", "abd"))
	assert.False(t, TimingSafeCompare("abc", "abcd"))
	assert.True(t, TimingSafeCompare("", ""))
}
