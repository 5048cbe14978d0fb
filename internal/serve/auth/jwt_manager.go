package auth

import (
	"errors"
	"fmt"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
)

const DefaultTokenLifetime = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid bearer token")

// JWTManager issues and verifies the HS256 bearer tokens the identity
// collaborator hands to clients. The subject claim carries the user id;
// handlers pass that id explicitly to services.
type JWTManager struct {
	SigningKey    []byte
	TokenLifetime time.Duration
}

func NewJWTManager(signingKey string, tokenLifetime time.Duration) (*JWTManager, error) {
	if signingKey == "" {
		return nil, errors.New("signing key cannot be empty")
	}
	if tokenLifetime <= 0 {
		tokenLifetime = DefaultTokenLifetime
	}

	return &JWTManager{
		SigningKey:    []byte(signingKey),
		TokenLifetime: tokenLifetime,
	}, nil
}

// ParseToken verifies the token signature and expiry and returns the
// user id from the subject claim.
func (m *JWTManager) ParseToken(tokenString string) (string, error) {
	token, err := jwtgo.Parse(tokenString, func(t *jwtgo.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtgo.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.SigningKey, nil
	}, jwtgo.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}
	return subject, nil
}

// GenerateToken issues a token for the user id, expiring after the
// configured lifetime.
func (m *JWTManager) GenerateToken(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id cannot be empty")
	}

	now := time.Now()
	claims := jwtgo.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwtgo.NewNumericDate(now),
		ExpiresAt: jwtgo.NewNumericDate(now.Add(m.TokenLifetime)),
	}

	token := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return tokenString, nil
}
