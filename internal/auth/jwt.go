package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnsafeRedirect is returned for redirect targets that leave the site.
var ErrUnsafeRedirect = errors.New("unsafe redirect target")

// RedirectClaims carries the page a visitor was sent away from before signing in.
type RedirectClaims struct {
	From string `json:"from"`
	jwt.RegisteredClaims
}

// SafePath reports whether p is a same-site absolute path.
func SafePath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return false
	}
	return !strings.ContainsAny(p, "\\\r\n")
}

// IssueRedirect signs from into a short-lived token.
func IssueRedirect(from, issuer, key string, ttl time.Duration) (string, error) {
	if !SafePath(from) {
		return "", ErrUnsafeRedirect
	}
	now := time.Now()
	claims := RedirectClaims{
		From: from,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// ParseRedirect validates a token from IssueRedirect and returns the path it carries.
func ParseRedirect(tokenStr, key, issuer string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &RedirectClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*RedirectClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return "", errors.New("issuer mismatch")
	}
	if !SafePath(claims.From) {
		return "", ErrUnsafeRedirect
	}
	return claims.From, nil
}
