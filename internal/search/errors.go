package search

import (
	"errors"
	"fmt"
)

// Error codes categorizing provider failures.
const (
	ErrCodeConfiguration = "CONFIG_ERROR"
	ErrCodeRateLimit     = "RATE_LIMIT_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST_ERROR"
	ErrCodeNotFound      = "NOT_FOUND_ERROR"
	ErrCodeServer        = "SERVER_ERROR"
	ErrCodeNetwork       = "NETWORK_ERROR"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeDownload      = "DOWNLOAD_ERROR"
)

// ProviderError is a categorized failure from a provider operation.
type ProviderError struct {
	Code       string // error category code
	Message    string // human-readable message
	StatusCode int    // HTTP status that produced the error, 0 if none
	Retryable  bool   // whether another attempt can help
	Cause      error  // underlying error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is matches errors by category code.
func (e *ProviderError) Is(target error) bool {
	var t *ProviderError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Common error instances for comparison with errors.Is.
var (
	// ErrInvalidAPIKey means the configured key was rejected. Fatal for
	// the whole invocation; never retried.
	ErrInvalidAPIKey = &ProviderError{Code: ErrCodeConfiguration, Message: "invalid api key"}
	// ErrRateLimited means the endpoint throttled us and the retry
	// budget is exhausted. The caller may defer the video to a later run.
	ErrRateLimited = &ProviderError{Code: ErrCodeRateLimit, Message: "rate limit exceeded"}
)

func newBadRequestError(status int) *ProviderError {
	return &ProviderError{
		Code:       ErrCodeBadRequest,
		Message:    "malformed search request",
		StatusCode: status,
		Retryable:  false,
	}
}

func newNotFoundError(status int) *ProviderError {
	return &ProviderError{
		Code:       ErrCodeNotFound,
		Message:    "no results",
		StatusCode: status,
		Retryable:  false,
	}
}

func newConfigError(status int) *ProviderError {
	return &ProviderError{
		Code:       ErrCodeConfiguration,
		Message:    "invalid api key",
		StatusCode: status,
		Retryable:  false,
	}
}

func newRateLimitError(status int) *ProviderError {
	return &ProviderError{
		Code:       ErrCodeRateLimit,
		Message:    "rate limit exceeded",
		StatusCode: status,
		Retryable:  true,
	}
}

func newServerError(status int) *ProviderError {
	return &ProviderError{
		Code:       ErrCodeServer,
		Message:    "server error",
		StatusCode: status,
		Retryable:  true,
	}
}

func newNetworkError(cause error) *ProviderError {
	return &ProviderError{
		Code:      ErrCodeNetwork,
		Message:   "request failed",
		Retryable: true,
		Cause:     cause,
	}
}

func newParseError(cause error) *ProviderError {
	return &ProviderError{
		Code:      ErrCodeParse,
		Message:   "malformed response",
		Retryable: true,
		Cause:     cause,
	}
}

// IsRetryable reports whether another attempt at the failed operation
// can help. Unknown error kinds are treated as retryable transport
// failures.
func IsRetryable(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return true
}
