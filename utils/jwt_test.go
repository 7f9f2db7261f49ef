package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(testSecret, "maria", "STAFF_MANAGER", time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "maria", claims.Username)
	assert.Equal(t, "STAFF_MANAGER", claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := GenerateToken(testSecret, "maria", "STAFF_MANAGER", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.Error(t, err, "expired")

	valid, err := GenerateToken(testSecret, "maria", "STAFF_MANAGER", time.Hour, time.Now())
	require.NoError(t, err)
	_, err = ParseToken([]byte("other-secret"), valid)
	assert.Error(t, err, "wrong secret")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &CustomClaims{
		Username: "maria",
		Role:     "STAFF_MANAGER",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "someone-else",
		},
	})
	signed, err := foreign.SignedString(testSecret)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, signed)
	assert.Error(t, err, "wrong issuer")

	_, err = ParseToken(testSecret, "not-a-token")
	assert.Error(t, err)
}
