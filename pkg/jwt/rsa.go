// Package jwt provides RS256 assertion signing for GitHub App authentication
package jwt

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"runtime"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/OpsMx/githubapp-client/pkg/types"
)

// MaxAssertionLifetime is the longest exp-iat span GitHub accepts for an App JWT
const MaxAssertionLifetime = 600 * time.Second

// PrivateKey encapsulates an RSA private key with the App ID it signs for
// This prevents direct access to the raw private key material
type PrivateKey struct {
	key   *rsa.PrivateKey
	appID string
}

// Signer interface for testing and abstraction
type Signer interface {
	Sign(now time.Time) (*types.Assertion, error)
	AppID() string
	PublicKeyPEM() (string, error)
}

// Sign builds and signs an assertion issued at now and expiring MaxAssertionLifetime later
func (pk *PrivateKey) Sign(now time.Time) (*types.Assertion, error) {
	if pk.key == nil {
		return nil, types.NewClientError(types.ErrCodeSigningError, "private key is nil")
	}

	issuedAt := now.Unix()
	claims := &types.AppClaims{
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt + int64(MaxAssertionLifetime/time.Second),
		Issuer:    pk.appID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	tokenString, err := token.SignedString(pk.key)
	if err != nil {
		return nil, types.WrapClientError(types.ErrCodeSigningError, "failed to sign assertion", err)
	}

	return &types.Assertion{
		Token:     tokenString,
		IssuedAt:  time.Unix(claims.IssuedAt, 0),
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
		Issuer:    claims.Issuer,
	}, nil
}

// Verify checks an assertion's signature against this key's public half and
// validates its time bounds at now
func (pk *PrivateKey) Verify(tokenString string, now time.Time) (*types.AppClaims, error) {
	if pk.key == nil {
		return nil, types.NewClientError(types.ErrCodeSigningError, "private key is nil")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(pk.appID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	claims := &types.AppClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return &pk.key.PublicKey, nil
	})
	if err != nil {
		return nil, types.WrapClientError(types.ErrCodeAuthenticationError, "assertion rejected", err)
	}

	if claims.ExpiresAt-claims.IssuedAt > int64(MaxAssertionLifetime/time.Second) {
		return nil, types.NewClientErrorWithDetails(types.ErrCodeAuthenticationError, "assertion rejected",
			fmt.Sprintf("lifetime %ds exceeds %ds", claims.ExpiresAt-claims.IssuedAt, int64(MaxAssertionLifetime/time.Second)))
	}

	return claims, nil
}

// AppID returns the App ID associated with this private key
func (pk *PrivateKey) AppID() string {
	return pk.appID
}

// PublicKeyPEM returns the public key in PEM format
func (pk *PrivateKey) PublicKeyPEM() (string, error) {
	if pk.key == nil {
		return "", fmt.Errorf("private key is nil")
	}

	pubKeyBytes, err := x509.MarshalPKIXPublicKey(&pk.key.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyBytes,
	}

	return string(pem.EncodeToMemory(pemBlock)), nil
}

// Zero securely zeros the private key material and metadata (called by finalizer)
func (pk *PrivateKey) Zero() {
	if pk.key != nil {
		if pk.key.D != nil {
			pk.key.D.SetInt64(0)
		}
		for _, prime := range pk.key.Primes {
			prime.SetInt64(0)
		}
		pk.key = nil
	}
	pk.appID = ""
}

// NewPrivateKey creates a PrivateKey struct from an existing raw RSA private key
// Returns nil when the key is nil or the App ID is empty
func NewPrivateKey(rawKey *rsa.PrivateKey, appID string) *PrivateKey {
	if rawKey == nil || appID == "" {
		return nil
	}

	privateKey := &PrivateKey{
		key:   rawKey,
		appID: appID,
	}

	// Set up finalizer to zero out key material on GC
	runtime.SetFinalizer(privateKey, (*PrivateKey).Zero)

	return privateKey
}

// LoadPrivateKey parses PEM key material and binds it to appID
func LoadPrivateKey(pemData []byte, appID string) (*PrivateKey, error) {
	rawKey, err := ParsePrivateKey(pemData)
	if err != nil {
		return nil, err
	}

	privateKey := NewPrivateKey(rawKey, appID)
	if privateKey == nil {
		return nil, types.NewClientError(types.ErrCodeSigningError, "failed to create private key (invalid parameters)")
	}
	return privateKey, nil
}

// ParsePrivateKey parses an RSA private key from PEM format
// GitHub issues PKCS#1 keys; PKCS#8 is accepted as well
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	pemData = bytes.TrimSpace(pemData)
	if len(pemData) == 0 {
		return nil, types.NewClientError(types.ErrCodeSigningError, "private key is empty")
	}

	// Keys pasted into a single-line env var often carry literal \n sequences
	if !bytes.Contains(pemData, []byte("\n")) && bytes.Contains(pemData, []byte(`\n`)) {
		pemData = bytes.ReplaceAll(pemData, []byte(`\n`), []byte("\n"))
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, types.NewClientError(types.ErrCodeSigningError, "failed to parse PEM block containing the key")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return privateKey, nil
	}

	keyInterface, pkcs8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if pkcs8Err != nil {
		return nil, types.NewClientErrorWithDetails(types.ErrCodeSigningError, "failed to parse RSA private key",
			fmt.Sprintf("pkcs1: %v; pkcs8: %v", err, pkcs8Err))
	}

	rsaKey, ok := keyInterface.(*rsa.PrivateKey)
	if !ok {
		return nil, types.NewClientErrorWithDetails(types.ErrCodeSigningError, "unsupported key algorithm",
			fmt.Sprintf("%T is not an RSA key", keyInterface))
	}

	return rsaKey, nil
}
