package types

import (
	"errors"
	"fmt"
)

// ClientError represents an error from the GitHub App client
type ClientError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"status_code,omitempty"` // HTTP status, when the error came from a response
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *ClientError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeConfigurationError  = "CONFIGURATION_ERROR"
	ErrCodeSigningError        = "SIGNING_ERROR"
	ErrCodeAuthenticationError = "AUTHENTICATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeNetworkError        = "NETWORK_ERROR"
	ErrCodeHTTPError           = "HTTP_ERROR"
	ErrCodeDecodeError         = "DECODE_ERROR"
	ErrCodeValidationError     = "VALIDATION_ERROR"
)

// NewClientError creates a new client error
func NewClientError(code, message string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
	}
}

// NewClientErrorWithDetails creates a new client error with details
func NewClientErrorWithDetails(code, message, details string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WrapClientError creates a client error around an underlying cause
func WrapClientError(code, message string, err error) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetClientError returns the ClientError if err is or wraps one
func GetClientError(err error) *ClientError {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return nil
}

// IsClientError checks if err is or wraps a ClientError
func IsClientError(err error) bool {
	return GetClientError(err) != nil
}

// HasCode reports whether err is a ClientError carrying code
func HasCode(err error, code string) bool {
	clientErr := GetClientError(err)
	return clientErr != nil && clientErr.Code == code
}
