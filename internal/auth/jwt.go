package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericlarwa/gridline/internal/wire"
)

// TokenIssuer mints and verifies bearer tokens for the HTTP transport,
// layered next to username/password login.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

type claims struct {
	UserID uint32 `json:"user_id"`
	jwt.RegisteredClaims
}

// Issue mints a signed token carrying userID, expiring after the issuer's ttl.
func (t *TokenIssuer) Issue(userID uint32) (string, error) {
	now := time.Now()
	c := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", wire.New(wire.KindIOError, "auth: sign token: %v", err)
	}
	return signed, nil
}

// Verify checks signature and expiry, returning the carried user id.
func (t *TokenIssuer) Verify(tokenString string) (uint32, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, wire.New(wire.KindUnauthenticated, "auth: invalid token")
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return 0, wire.New(wire.KindUnauthenticated, "auth: invalid token claims")
	}
	return c.UserID, nil
}
