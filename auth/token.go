// Package auth is the identity collaborator boundary: it verifies the bearer
// credential presented at connection handshake and mints tokens for the
// client tooling and tests. Credential issuance itself lives outside this
// system.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-core/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens against a shared secret, once per
// connection at handshake time.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the signature and expiration of a JWT string
// and returns the verified user id. The subject claim is accepted as a
// fallback for tokens minted by other issuers.
func (v *Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", errors.ErrAuthFailure
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return "", errors.ErrAuthFailure
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", errors.ErrAuthFailure
	}
	return userID, nil
}

// GenerateToken creates a signed JWT for a specific user. Token lifetime is
// an external configuration concern; callers always pass it explicitly.
func GenerateToken(secret, userID string, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-core",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
