package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed call
type ErrorKind int

const (
	// KindUnknown is reported for errors outside the taxonomy
	KindUnknown ErrorKind = iota
	// KindNetworkFailure means no response was obtained
	KindNetworkFailure
	// KindHTTPStatus means the server answered with a non-2xx status
	KindHTTPStatus
	// KindValidation means the response did not match the expected shape
	KindValidation
	// KindConfiguration means the client was configured incorrectly
	KindConfiguration
)

// String returns the kind name
func (k ErrorKind) String() string {
	switch k {
	case KindNetworkFailure:
		return "NetworkFailure"
	case KindHTTPStatus:
		return "HttpStatus"
	case KindValidation:
		return "ValidationError"
	case KindConfiguration:
		return "ConfigurationError"
	default:
		return "Unknown"
	}
}

// FieldError describes one field that failed validation
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error represents an API error
type Error struct {
	Kind       ErrorKind              `json:"kind"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"statusCode,omitempty"`
	Body       []byte                 `json:"-"`
	Timeout    bool                   `json:"timeout,omitempty"`
	Fields     []FieldError           `json:"fields,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	RequestID  string                 `json:"requestId,omitempty"`
	Err        error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("error: %s", e.Code)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the package sentinels against the error kind and status
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetworkFailure:
		return e.Kind == KindNetworkFailure
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrNotAuthenticated:
		return e.Kind == KindHTTPStatus && e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.Kind == KindHTTPStatus && e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.Kind == KindHTTPStatus && e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.Kind == KindHTTPStatus && e.StatusCode == http.StatusTooManyRequests
	case ErrServerError:
		return e.Kind == KindHTTPStatus && e.StatusCode >= 500
	case ErrTimeout:
		return (e.Kind == KindNetworkFailure && e.Timeout) ||
			(e.Kind == KindHTTPStatus && (e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout))
	}

	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// NewNetworkError wraps a transport failure where no response was obtained
func NewNetworkError(err error, timeout bool) *Error {
	code := "NETWORK_FAILURE"
	if timeout {
		code = "TIMEOUT"
	}
	return &Error{
		Kind:    KindNetworkFailure,
		Code:    code,
		Message: "network failure",
		Timeout: timeout,
		Err:     err,
	}
}

// NewHTTPError builds the error for a non-2xx response
func NewHTTPError(statusCode int, body []byte) *Error {
	// Try to parse error response
	var errResp struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Detail
	if msg == "" {
		msg = errResp.Message
	}
	if msg == "" {
		msg = errResp.Error
	}

	e := &Error{
		Kind:       KindHTTPStatus,
		StatusCode: statusCode,
		Body:       body,
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		e.Code = "NOT_AUTHENTICATED"
	case statusCode == http.StatusForbidden:
		e.Code = "FORBIDDEN"
	case statusCode == http.StatusNotFound:
		e.Code = "NOT_FOUND"
	case statusCode == http.StatusTooManyRequests:
		e.Code = "RATE_LIMITED"
	case statusCode == http.StatusBadRequest:
		e.Code = "BAD_REQUEST"
	case statusCode >= 500:
		e.Code = "SERVER_ERROR"
	default:
		e.Code = "HTTP_ERROR"
	}
	if errResp.Code != "" {
		e.Details = map[string]interface{}{"code": errResp.Code}
	}

	// Create base message with status code and description
	baseMsg := fmt.Sprintf("HTTP error: %d", statusCode)
	if statusCode >= 500 {
		baseMsg = fmt.Sprintf("server error: %d", statusCode)
	}
	if desc := httpStatusDescription(statusCode); desc != "" {
		baseMsg = fmt.Sprintf("%s (%s)", baseMsg, desc)
	}

	// Append parsed error message if available
	if msg != "" {
		baseMsg = fmt.Sprintf("%s: %s", baseMsg, msg)
	}
	e.Message = baseMsg

	return e
}

// NewValidationError reports a response that did not match its declared shape
func NewValidationError(message string, fields []FieldError, err error) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Fields:  fields,
		Err:     err,
	}
}

// NewConfigurationError reports an invalid client setting
func NewConfigurationError(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Code:    "CONFIGURATION_ERROR",
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the ErrorKind carried by err, or KindUnknown
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindHTTPStatus {
		return apiErr.StatusCode
	}
	return 0
}

// httpStatusDescription returns a human-readable description for common HTTP status codes.
// This helps users understand errors like 525 (SSL Handshake Failed) which are Cloudflare-specific.
func httpStatusDescription(statusCode int) string {
	descriptions := map[int]string{
		400: "Bad Request",
		401: "Unauthorized",
		403: "Forbidden",
		404: "Not Found",
		408: "Request Timeout",
		429: "Too Many Requests",
		500: "Internal Server Error",
		501: "Not Implemented",
		502: "Bad Gateway",
		503: "Service Unavailable",
		504: "Gateway Timeout",
		520: "Web Server Error",
		521: "Web Server Is Down",
		522: "Connection Timed Out",
		523: "Origin Is Unreachable",
		524: "A Timeout Occurred",
		525: "SSL Handshake Failed",
		526: "Invalid SSL Certificate",
		527: "Railgun Error",
		530: "Origin DNS Error",
	}
	return descriptions[statusCode]
}
