// Package githubapp defines types for the GitHub App client
package githubapp

import (
	"github.com/OpsMx/githubapp-client/pkg/types"
)

// Shared types live in pkg/types so pkg/jwt can use them without importing this package
type (
	Assertion                     = types.Assertion
	Account                       = types.Account
	Installation                  = types.Installation
	AccessToken                   = types.AccessToken
	TokenRequest                  = types.TokenRequest
	App                           = types.App
	Repository                    = types.Repository
	RepositoryRequest             = types.RepositoryRequest
	Ruleset                       = types.Ruleset
	RulesetConditions             = types.RulesetConditions
	RefNameCondition              = types.RefNameCondition
	RepositoryNameCondition       = types.RepositoryNameCondition
	RulesetRule                   = types.RulesetRule
	RepositoryCounts              = types.RepositoryCounts
	Organization                  = types.Organization
	InstallableOrganization       = types.InstallableOrganization
	OrganizationInstallation      = types.OrganizationInstallation
	EnterpriseInstallationRequest = types.EnterpriseInstallationRequest
	ErrorResponse                 = types.ErrorResponse
	ClientError                   = types.ClientError
	installationRepositories      = types.InstallationRepositories
)

// Common error codes
const (
	ErrCodeConfigurationError  = types.ErrCodeConfigurationError
	ErrCodeSigningError        = types.ErrCodeSigningError
	ErrCodeAuthenticationError = types.ErrCodeAuthenticationError
	ErrCodeNotFound            = types.ErrCodeNotFound
	ErrCodeNetworkError        = types.ErrCodeNetworkError
	ErrCodeHTTPError           = types.ErrCodeHTTPError
	ErrCodeDecodeError         = types.ErrCodeDecodeError
	ErrCodeValidationError     = types.ErrCodeValidationError
)

// NewClientError creates a new client error
func NewClientError(code, message string) *ClientError {
	return types.NewClientError(code, message)
}

// NewClientErrorWithDetails creates a new client error with details
func NewClientErrorWithDetails(code, message, details string) *ClientError {
	return types.NewClientErrorWithDetails(code, message, details)
}

// WrapClientError creates a client error around an underlying cause
func WrapClientError(code, message string, err error) *ClientError {
	return types.WrapClientError(code, message, err)
}

// IsClientError checks if an error is or wraps a ClientError
func IsClientError(err error) bool {
	return types.IsClientError(err)
}

// GetClientError returns the ClientError if the error is or wraps one
func GetClientError(err error) *ClientError {
	return types.GetClientError(err)
}

// IsConfigurationError reports a missing or invalid required input
func IsConfigurationError(err error) bool {
	return types.HasCode(err, ErrCodeConfigurationError)
}

// IsSigningError reports malformed key material or an unsupported algorithm
func IsSigningError(err error) bool {
	return types.HasCode(err, ErrCodeSigningError)
}

// IsAuthenticationError reports a rejected assertion or token
func IsAuthenticationError(err error) bool {
	return types.HasCode(err, ErrCodeAuthenticationError)
}

// IsNotFound reports an unknown installation, organization or repository
func IsNotFound(err error) bool {
	return types.HasCode(err, ErrCodeNotFound)
}

// IsTransportError reports a network failure or timeout
func IsTransportError(err error) bool {
	return types.HasCode(err, ErrCodeNetworkError)
}
