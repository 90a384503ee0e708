package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pkgindex/internal/domain"
)

// IssueSession signs a short-lived HS256 session token for a principal id.
func IssueSession(secret []byte, principalID string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   principalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// ParseSession verifies a session token and returns the principal id it was
// issued for.
func ParseSession(secret []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", domain.ErrUnauthenticated("invalid session token")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", domain.ErrUnauthenticated("invalid session token")
	}
	return claims.Subject, nil
}
