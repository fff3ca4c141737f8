package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(7, "254712345678", "secret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "254712345678", claims.Phone)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestParseJWTRejects(t *testing.T) {
	token, err := GenerateJWT(7, "254712345678", "secret")
	require.NoError(t, err)

	_, err = ParseJWT(token, "other")
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)

	_, err = ParseJWT("not-a-token", "secret")
	assert.Error(t, err)
}
