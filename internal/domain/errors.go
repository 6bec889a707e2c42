package domain

import (
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable code surfaced to clients.
// Backend SDK errors are translated into one of these at the adapter
// boundary; raw transport errors never escape the provider layer.
type ErrorCode string

const (
	// ErrorCodeUnsupportedProvider indicates an unknown or disabled provider name.
	ErrorCodeUnsupportedProvider ErrorCode = "unsupported_provider"

	// ErrorCodeNotConfigured indicates no server-side key exists and no BYOK
	// credential was supplied.
	ErrorCodeNotConfigured ErrorCode = "llm_not_configured"

	// ErrorCodeInvalidAPIKey indicates the backend rejected the credential.
	ErrorCodeInvalidAPIKey ErrorCode = "invalid_api_key"

	// ErrorCodeQuotaExceeded indicates backend rate limiting or exhausted quota.
	ErrorCodeQuotaExceeded ErrorCode = "quota_exceeded"

	// ErrorCodeAPIError indicates a generic backend or transport failure,
	// including timeouts.
	ErrorCodeAPIError ErrorCode = "llm_api_error"

	// ErrorCodeInvalidResponse indicates the backend returned an empty or
	// unparseable payload.
	ErrorCodeInvalidResponse ErrorCode = "invalid_response"
)

// ProviderError is the canonical provider/configuration failure carried
// across the registry boundary.
type ProviderError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Provider   string    `json:"provider,omitempty"`
	StatusCode int       `json:"-"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatusCode returns the status class documented for the error code.
func (e *ProviderError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Code {
	case ErrorCodeUnsupportedProvider:
		return http.StatusUnprocessableEntity
	case ErrorCodeNotConfigured:
		return http.StatusServiceUnavailable
	case ErrorCodeInvalidAPIKey:
		return http.StatusUnauthorized
	case ErrorCodeQuotaExceeded:
		return http.StatusPaymentRequired
	case ErrorCodeAPIError, ErrorCodeInvalidResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithProvider tags the error with the backend it originated from.
func (e *ProviderError) WithProvider(provider string) *ProviderError {
	e.Provider = provider
	return e
}

// Convenience constructors for the taxonomy.

// ErrUnsupportedProvider reports an unknown or disabled provider name.
func ErrUnsupportedProvider(provider string) *ProviderError {
	return &ProviderError{
		Code:     ErrorCodeUnsupportedProvider,
		Message:  fmt.Sprintf("Unsupported provider: %s", provider),
		Provider: provider,
	}
}

// ErrNotConfigured reports a missing server-side key for the provider.
func ErrNotConfigured(provider string) *ProviderError {
	return &ProviderError{
		Code:     ErrorCodeNotConfigured,
		Message:  "Server-side LLM key missing. Provide BYOK credentials.",
		Provider: provider,
	}
}

// ErrInvalidAPIKey reports a rejected backend credential.
func ErrInvalidAPIKey(provider, message string) *ProviderError {
	return &ProviderError{
		Code:     ErrorCodeInvalidAPIKey,
		Message:  message,
		Provider: provider,
	}
}

// ErrQuotaExceeded reports backend rate limiting.
func ErrQuotaExceeded(provider, message string) *ProviderError {
	return &ProviderError{
		Code:     ErrorCodeQuotaExceeded,
		Message:  message,
		Provider: provider,
	}
}

// ErrAPIError reports a generic backend failure.
func ErrAPIError(provider, message string) *ProviderError {
	return &ProviderError{
		Code:     ErrorCodeAPIError,
		Message:  message,
		Provider: provider,
	}
}

// ErrInvalidResponse reports an empty or unparseable backend payload.
func ErrInvalidResponse(provider, message string) *ProviderError {
	return &ProviderError{
		Code:     ErrorCodeInvalidResponse,
		Message:  message,
		Provider: provider,
	}
}
