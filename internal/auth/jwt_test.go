package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestIdentityTokenRoundTrip(t *testing.T) {
	token, err := SignIdentityToken("auth0|abc123", "user@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := VerifyIdentityToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc123", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestVerifyIdentityToken_WrongSecret(t *testing.T) {
	token, err := SignIdentityToken("auth0|abc123", "user@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = VerifyIdentityToken(token, "other-secret")
	assert.Error(t, err)
}

func TestVerifyIdentityToken_Expired(t *testing.T) {
	token, err := SignIdentityToken("auth0|abc123", "user@example.com", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = VerifyIdentityToken(token, testSecret)
	assert.Error(t, err)
}

func TestVerifyIdentityToken_MissingClaims(t *testing.T) {
	noSubject, err := SignIdentityToken("", "user@example.com", testSecret, time.Hour)
	require.NoError(t, err)
	_, err = VerifyIdentityToken(noSubject, testSecret)
	assert.Error(t, err)

	noEmail, err := SignIdentityToken("auth0|abc123", "", testSecret, time.Hour)
	require.NoError(t, err)
	_, err = VerifyIdentityToken(noEmail, testSecret)
	assert.Error(t, err)

	_, err = VerifyIdentityToken("not.a.token", testSecret)
	assert.Error(t, err)
}
