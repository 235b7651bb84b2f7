package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity contained in a bearer token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned for malformed, expired or mis-signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Sign issues an HS256 token for the given subject, valid for 24h.
func Sign(secret, sub, email, name string) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	if sub == "" {
		return "", errors.New("sub is required")
	}
	now := time.Now().UTC()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify parses and validates an HS256 token, returning its claims.
func Verify(secret, tokenStr string) (Claims, error) {
	if secret == "" {
		return Claims{}, errors.New("jwt secret not configured")
	}
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
