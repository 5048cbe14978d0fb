package auth

import (
	"testing"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManagerRoundTrip(t *testing.T) {
	manager, err := NewJWTManager("test-signing-key", time.Hour)
	require.NoError(t, err)

	token, err := manager.GenerateToken("user-1")
	require.NoError(t, err)

	userID, err := manager.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestJWTManagerParseToken_Failures(t *testing.T) {
	manager, err := NewJWTManager("test-signing-key", time.Hour)
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := manager.ParseToken("not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other, err := NewJWTManager("another-key", time.Hour)
		require.NoError(t, err)
		token, err := other.GenerateToken("user-1")
		require.NoError(t, err)

		_, err = manager.ParseToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		now := time.Now()
		claims := jwtgo.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwtgo.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwtgo.NewNumericDate(now.Add(-time.Hour)),
		}
		token, err := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, claims).SignedString(manager.SigningKey)
		require.NoError(t, err)

		_, err = manager.ParseToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := jwtgo.RegisteredClaims{
			ExpiresAt: jwtgo.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, claims).SignedString(manager.SigningKey)
		require.NoError(t, err)

		_, err = manager.ParseToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		claims := jwtgo.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwtgo.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwtgo.NewWithClaims(jwtgo.SigningMethodNone, claims).SignedString(jwtgo.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = manager.ParseToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewJWTManager(t *testing.T) {
	_, err := NewJWTManager("", time.Hour)
	require.Error(t, err)

	manager, err := NewJWTManager("key", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenLifetime, manager.TokenLifetime)
}
