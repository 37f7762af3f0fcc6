// Package jwt reads assertion claims without verifying signatures.
// Only the holder of the public key (GitHub) can verify an App JWT; the client
// needs the claims to refuse expired assertions before sending them.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/OpsMx/githubapp-client/pkg/types"
)

// Inspect decodes the claims of an encoded assertion without checking its signature
func Inspect(tokenString string) (*types.AppClaims, error) {
	claims := &types.AppClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to decode assertion: %w", err)
	}
	if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if claims.ExpiresAt == 0 || claims.Issuer == "" {
		return nil, fmt.Errorf("missing required assertion fields (exp or iss)")
	}
	return claims, nil
}

// ToAssertion wraps an encoded token and its decoded claims
func ToAssertion(tokenString string, claims *types.AppClaims) *types.Assertion {
	return &types.Assertion{
		Token:     tokenString,
		IssuedAt:  time.Unix(claims.IssuedAt, 0),
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
		Issuer:    claims.Issuer,
	}
}
