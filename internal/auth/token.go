// Package auth inspects access tokens and describes the token refresh exchange.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshRequest is the body posted to the refresh endpoint
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is the refresh endpoint's answer. Servers that rotate
// refresh tokens also return a new refresh value.
type RefreshResponse struct {
	Access  string `json:"access" validate:"required"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenExpiry returns the exp claim of a JWT access token. The signature is
// not verified: the client only needs to know when to renew. ok is false for
// opaque tokens and tokens without exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiresWithin reports whether token expires before now+skew.
// Tokens with no readable expiry never do.
func ExpiresWithin(token string, skew time.Duration, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !now.Add(skew).Before(exp)
}
