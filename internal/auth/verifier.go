// Package auth validates the identity claims presented during the
// WebSocket handshake. Tokens are minted by the external application tier;
// the broker only verifies them.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingUserID = errors.New("token has no user_id claim")
)

// Claims is the verified identity assertion extracted from a token.
type Claims struct {
	UserID uint
}

// Verifier checks an identity claim and returns the identity it asserts.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// JWTVerifier validates HMAC-signed JWTs against a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID < 0 {
		return nil, ErrMissingUserID
	}

	return &Claims{UserID: uint(userID)}, nil
}
