package auth

import (
	"time"

	"bluecarbon-backend/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims bind a session token to a wallet address and role.
type Claims struct {
	Address string `json:"address"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates short-lived session tokens. Tokens are not
// refreshable; an expired token forces a new challenge round-trip.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
}

// Issue mints an HS256 token bound to {address, role, expiry}.
func (t *TokenIssuer) Issue(address, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Address: address,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
			Subject:   address,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
}

// Parse validates a token and returns its claims. Expired, malformed or
// wrongly signed tokens all map to Unauthorized.
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Unauthorized("Unexpected signing method")
		}
		return t.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("Invalid or expired session token")
	}
	return claims, nil
}
