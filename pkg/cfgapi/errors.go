package cfgapi

import (
	"errors"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Error represents an API error. Every failure the client produces is an *Error,
// except context cancellation, which is returned as ctx.Err().
type Error = types.Error

// ErrorKind classifies an Error
type ErrorKind = types.ErrorKind

// FieldError describes one field that failed response validation
type FieldError = types.FieldError

// Error kinds
const (
	KindUnknown        = types.KindUnknown
	KindNetworkFailure = types.KindNetworkFailure
	KindHTTPStatus     = types.KindHTTPStatus
	KindValidation     = types.KindValidation
	KindConfiguration  = types.KindConfiguration
)

var (
	// ErrNetworkFailure matches failures where no response was obtained
	ErrNetworkFailure = types.ErrNetworkFailure

	// ErrHTTPStatus matches any non-2xx response
	ErrHTTPStatus = types.ErrHTTPStatus

	// ErrValidation matches responses that did not match their declared shape
	ErrValidation = types.ErrValidation

	// ErrConfiguration matches invalid client configuration
	ErrConfiguration = types.ErrConfiguration

	// ErrNotAuthenticated is returned when authentication is required
	ErrNotAuthenticated = types.ErrNotAuthenticated

	// ErrForbidden is returned when the credentials lack permission
	ErrForbidden = types.ErrForbidden

	// ErrNotFound is returned when resource not found
	ErrNotFound = types.ErrNotFound

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = types.ErrRateLimited

	// ErrTimeout is returned on timeout
	ErrTimeout = types.ErrTimeout

	// ErrServerError is returned for server errors
	ErrServerError = types.ErrServerError

	// ErrNoRefreshToken is returned when a refresh is requested without a refresh token
	ErrNoRefreshToken = types.ErrNoRefreshToken
)

// KindOf returns the kind of err, or KindUnknown
func KindOf(err error) ErrorKind {
	return types.KindOf(err)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	return types.StatusCode(err)
}

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNoRefreshToken)
}

// IsRetryable checks if error is transient under the default policy
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetworkFailure) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError)
}
