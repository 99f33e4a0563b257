package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, err := issuer.Issue("user-1", "sam@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sam@example.com", claims.Email)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer("secret-a", time.Hour).Issue("user-1", "sam@example.com")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	token, err := NewIssuer("secret", -time.Minute).Issue("user-1", "sam@example.com")
	require.NoError(t, err)

	_, err = NewIssuer("secret", -time.Minute).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewIssuer("secret", time.Hour).Verify("not-a-token")
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	// digest format is stable; existing rows depend on it
	assert.Equal(t,
		"f52fbd32b2b3b86ff88ef6c490628285f482af15ddcb29541f94bcf526a3f6c7",
		HashPassword("hunter2"))

	assert.True(t, VerifyPassword("hunter2", HashPassword("hunter2")))
	assert.False(t, VerifyPassword("hunter3", HashPassword("hunter2")))
}
