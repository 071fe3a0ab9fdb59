package middleware_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanityforge/vanity-gateway/internal/api/middleware"
)

func TestAuthenticate(t *testing.T) {
	cfg := middleware.AuthConfig{APIKeys: []string{"key-1", "key-2"}}

	t.Run("accepts a configured API key", func(t *testing.T) {
		result := middleware.Authenticate("ApiKey key-1", cfg)
		assert.True(t, result.Success)
		assert.Equal(t, "apikey", result.AuthType)
	})

	t.Run("rejects an unknown API key", func(t *testing.T) {
		result := middleware.Authenticate("ApiKey nope", cfg)
		assert.False(t, result.Success)
		assert.Error(t, result.Error)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		result := middleware.Authenticate("", cfg)
		assert.False(t, result.Success)
	})

	t.Run("rejects an unsupported scheme", func(t *testing.T) {
		result := middleware.Authenticate("Basic dXNlcjpwYXNz", cfg)
		assert.False(t, result.Success)
	})

	t.Run("accepts a valid RSA JWT", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		require.NoError(t, err)
		pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(key)
		require.NoError(t, err)

		result := middleware.Authenticate("Bearer "+signed, middleware.AuthConfig{JWTPublicKey: string(pubPEM)})
		require.True(t, result.Success, "%v", result.Error)
		assert.Equal(t, "jwt", result.AuthType)
		assert.Equal(t, "operator", result.AuthSubject)
	})

	t.Run("rejects an expired JWT", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		require.NoError(t, err)
		pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})
		signed, err := token.SignedString(key)
		require.NoError(t, err)

		result := middleware.Authenticate("Bearer "+signed, middleware.AuthConfig{JWTPublicKey: string(pubPEM)})
		assert.False(t, result.Success)
	})
}
