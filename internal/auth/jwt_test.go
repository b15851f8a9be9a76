package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestSignVerifyRoundtrip(t *testing.T) {
	tok, err := Sign(testSecret, "user-1", "superadmin", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := Verify(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "superadmin", claims.Role)
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, err := Sign(testSecret, "user-1", "user", time.Hour)
	require.NoError(t, err)

	_, err = Verify("other-secret", tok)
	assert.Error(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	tok, err := Sign(testSecret, "user-1", "user", -time.Minute)
	require.NoError(t, err)

	_, err = Verify(testSecret, tok)
	assert.Error(t, err)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := Verify(testSecret, "not-a-token")
	assert.Error(t, err)
}

func TestClaimsHasRole(t *testing.T) {
	c := Claims{Subject: "u", Role: "user"}
	assert.True(t, c.HasRole("user"))
	assert.False(t, c.HasRole("superadmin"))
}
