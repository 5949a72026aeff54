package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the credential payload. NameID binds a client access token to a user.
type Claims struct {
	NameID string `json:"nameid,omitempty"`
	jwt.RegisteredClaims
}

// Mint signs an HS256 credential whose audience is exactly target. It is a pure
// function of its inputs; callers must pass the final, fully built URL.
func Mint(target string, secret []byte, validity time.Duration, now time.Time) (string, error) {
	return MintFor(target, "", secret, validity, now)
}

// MintFor is Mint with a nameid claim binding the token to a user.
func MintFor(target, userID string, secret []byte, validity time.Duration, now time.Time) (string, error) {
	if target == "" {
		return "", errors.New("credential audience is empty")
	}
	if len(secret) == 0 {
		return "", errors.New("credential secret is empty")
	}
	claims := Claims{
		NameID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{target},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verify parses an HS256 credential and checks its signature, expiry and,
// when audience is non-empty, its audience.
func Verify(tokenStr string, secret []byte, audience string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
