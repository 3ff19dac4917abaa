package types

import (
	"errors"
	"time"
)

const (
	// DefaultTimeout is the default per-attempt timeout
	DefaultTimeout = 30 * time.Second

	// UserAgent is the user agent string
	UserAgent = "django-cfg-go/1.0.0"

	// DefaultRefreshPath is the token refresh endpoint exposed by the backend
	DefaultRefreshPath = "/cfg/accounts/token/refresh/"

	// DefaultRefreshSkew is how close to expiry an access token may get
	// before AutoRefresh renews it
	DefaultRefreshSkew = 30 * time.Second
)

// Storage keys for the two persisted credential values
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "refresh_token"
)

// Header names used by the runtime
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"
	HeaderRequestID     = "X-Request-ID"
	HeaderCookie        = "Cookie"
	HeaderSetCookie     = "Set-Cookie"

	ContentTypeJSON = "application/json"
)

// Retry defaults
const (
	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = 300 * time.Millisecond
	DefaultBackoffMultiplier = 2.0
	DefaultMaxDelay          = 5 * time.Second
)

// DefaultRetryableStatusCodes lists the statuses treated as transient
var DefaultRetryableStatusCodes = []int{429, 502, 503, 504}

// Common errors
var (
	// ErrNetworkFailure matches any error where no response was obtained
	ErrNetworkFailure = errors.New("network failure")

	// ErrHTTPStatus matches any non-2xx response
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrValidation matches responses that did not fit the expected shape
	ErrValidation = errors.New("response validation failed")

	// ErrConfiguration matches invalid client configuration
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotAuthenticated is returned when authentication is required
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the credentials lack permission
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")

	// ErrNoRefreshToken is returned when a refresh is requested without a refresh token
	ErrNoRefreshToken = errors.New("no refresh token available")
)
