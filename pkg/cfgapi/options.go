package cfgapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/markolofsen/django-cfg-sub001/internal/core"
	"github.com/markolofsen/django-cfg-sub001/internal/logging"
	"github.com/markolofsen/django-cfg-sub001/internal/retry"
	"github.com/markolofsen/django-cfg-sub001/internal/storage"
	"github.com/markolofsen/django-cfg-sub001/internal/transport"
	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Shared types re-exported for callers outside this module
type (
	// Logger is the operational logger used by the client and its transport
	Logger = types.Logger
	// Hooks observe raw HTTP exchanges
	Hooks = types.Hooks
	// Credentials is the access/refresh token pair
	Credentials = types.Credentials

	// RetryConfig configures the retry policy
	RetryConfig = retry.Config
	// AttemptInfo describes a failed attempt handed to OnRetry
	AttemptInfo = retry.AttemptInfo

	// LoggerConfig configures the request logger
	LoggerConfig = logging.Config
	// LogLevel is a request logger level
	LogLevel = logging.Level
	// LogEvent is one request logger record
	LogEvent = logging.Event
	// LogSink receives request logger records
	LogSink = logging.Sink

	// Store persists credentials
	Store = storage.Store
	// StorageConfig selects a credential store backend
	StorageConfig = storage.Config
	// FileStorageConfig configures the file backend
	FileStorageConfig = storage.FileConfig
	// CookieStorageConfig configures the cookie backend
	CookieStorageConfig = storage.CookieConfig
	// RedisStorageConfig configures the redis backend
	RedisStorageConfig = storage.RedisConfig
	// SQLiteStorageConfig configures the sqlite backend
	SQLiteStorageConfig = storage.SQLiteConfig

	// Transport sends a single HTTP exchange
	Transport = transport.Transport
	// TransportRequest is what a Transport receives
	TransportRequest = transport.Request
	// Response is a fully read 2xx response
	Response = transport.Response

	// Middleware transforms requests before they are sent
	Middleware = core.Middleware
)

// Request logger levels
const (
	LogLevelDebug = logging.LevelDebug
	LogLevelInfo  = logging.LevelInfo
	LogLevelWarn  = logging.LevelWarn
	LogLevelError = logging.LevelError
)

// Credential store drivers
const (
	StorageMemory = storage.DriverMemory
	StorageFile   = storage.DriverFile
	StorageCookie = storage.DriverCookie
	StorageRedis  = storage.DriverRedis
	StorageSQLite = storage.DriverSQLite
)

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL is the API origin. Required.
	BaseURL string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Transport replaces the default HTTP transport entirely
	Transport Transport

	// Timeout bounds each attempt. Defaults to 30s; negative disables it.
	Timeout time.Duration

	// Headers are added to every request that does not set them.
	// Authorization is rejected; credentials come from SetToken.
	Headers map[string]string

	// UserAgent overrides the default user agent
	UserAgent string

	// Storage persists credentials. When nil, StorageConfig selects a backend.
	Storage Store

	// StorageConfig selects a backend when Storage is nil. Defaults to memory.
	StorageConfig *StorageConfig

	// RetryConfig configures retry behavior. Defaults to DefaultRetryConfig().
	RetryConfig *RetryConfig

	// LoggerConfig enables the structured request logger
	LoggerConfig *LoggerConfig

	// LogSinks receive request logger events. When empty, events go to Logger,
	// or to slog.Default() if Logger is nil.
	LogSinks []LogSink

	// Logger for debug logging
	Logger Logger

	// Hooks for observability
	Hooks *Hooks

	// OnRetry is called after every failed attempt
	OnRetry func(ctx context.Context, info AttemptInfo)

	// Middleware runs after the built-in header and token middleware
	Middleware []Middleware

	// RefreshPath is the token refresh endpoint
	RefreshPath string

	// AutoRefresh renews the access token before it expires and once after a 401
	AutoRefresh bool

	// RefreshSkew is how close to expiry AutoRefresh renews a JWT access token
	RefreshSkew time.Duration

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// RequestOptions carries the optional parts of a request
type RequestOptions struct {
	Query   url.Values
	Body    interface{}
	Headers http.Header
	// Idempotent allows retrying a mutating request
	Idempotent bool
	// NoAuth sends the request without the bearer token
	NoAuth bool
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return retry.DefaultConfig()
}

// DefaultLoggerConfig returns the default, disabled, logger configuration
func DefaultLoggerConfig() *LoggerConfig {
	return logging.DefaultConfig()
}

// NewMemoryStore returns an empty in-memory credential store
func NewMemoryStore() Store {
	return storage.NewMemory()
}

// NewFileStore returns a credential store backed by a JSON file at path
func NewFileStore(path string) (Store, error) {
	return storage.NewFile(path)
}

// NewSlogLogger adapts *slog.Logger to Logger
func NewSlogLogger(l *slog.Logger) Logger {
	return logging.NewSlogLogger(l)
}

// SlogSink returns a sink writing request events to l
func SlogSink(l *slog.Logger) LogSink {
	return logging.SlogSink{Logger: l}
}

// SentrySink returns a sink reporting request events to the current Sentry hub
func SentrySink() LogSink {
	return logging.SentrySink{}
}
