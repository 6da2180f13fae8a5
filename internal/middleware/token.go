package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SocketTokens mints and verifies the short-lived tokens the API-key-gated
// HTTP surface hands out for websocket handshakes, so browser clients never
// see the shared API key.
type SocketTokens struct {
	secret []byte
	ttl    time.Duration
}

type socketClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func NewSocketTokens(secret string, ttl time.Duration) *SocketTokens {
	return &SocketTokens{secret: []byte(secret), ttl: ttl}
}

// Mint returns a signed token bound to userID.
func (t *SocketTokens) Mint(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, socketClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "fychat",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.ttl)),
		},
	})
	return token.SignedString(t.secret)
}

// Validate checks the signature and expiry and returns the bound user id.
func (t *SocketTokens) Validate(tokenString string) (string, error) {
	claims := &socketClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.UserID == "" {
		return "", errors.New("invalid socket token")
	}
	return claims.UserID, nil
}
