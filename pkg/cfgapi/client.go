package cfgapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/markolofsen/django-cfg-sub001/internal/auth"
	"github.com/markolofsen/django-cfg-sub001/internal/core"
	"github.com/markolofsen/django-cfg-sub001/internal/logging"
	"github.com/markolofsen/django-cfg-sub001/internal/retry"
	"github.com/markolofsen/django-cfg-sub001/internal/storage"
	"github.com/markolofsen/django-cfg-sub001/internal/transport"
	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Client is the API facade. It owns the credentials, persists them through
// the configured Store and executes calls through an immutable core that is
// swapped whenever credentials or the base URL change.
//
// Calls started after SetToken or ClearTokens returns observe the new state.
type Client struct {
	// Service interfaces
	Accounts AccountsService

	options   ClientOptions
	store     Store
	transport Transport
	policy    *retry.Policy
	reqLogger *logging.Logger
	logger    Logger
	headers   http.Header
	timeout   time.Duration

	// mu serializes credential and base URL changes
	mu      sync.Mutex
	creds   atomic.Pointer[Credentials]
	core    atomic.Pointer[core.Core]
	refresh singleflight.Group

	sentryEnabled bool
	now           func() time.Time
}

// NewClient creates a new API client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		return nil, types.NewConfigurationError("client options are required")
	}
	o := *opts

	if err := validateBaseURL(o.BaseURL); err != nil {
		return nil, err
	}
	for k := range o.Headers {
		if http.CanonicalHeaderKey(k) == types.HeaderAuthorization {
			return nil, types.NewConfigurationError("Authorization cannot be set in Headers; use SetToken")
		}
	}

	c := &Client{
		options: o,
		logger:  o.Logger,
		now:     time.Now,
	}

	// Initialize Sentry if DSN is provided
	if o.SentryDSN != "" || o.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}
		if o.SentryOptions != nil {
			sentryOpts = *o.SentryOptions
		}
		if o.SentryDSN != "" {
			sentryOpts.Dsn = o.SentryDSN
		}
		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}
		if err := sentry.Init(sentryOpts); err != nil {
			// Log error but don't fail client creation
			if c.logger != nil {
				c.logger.Error("Failed to initialize Sentry", "error", err)
			}
		} else {
			c.sentryEnabled = true
		}
	}

	policy, err := retry.NewPolicy(o.RetryConfig)
	if err != nil {
		return nil, err
	}
	c.policy = policy

	switch {
	case o.Timeout == 0:
		c.timeout = types.DefaultTimeout
	case o.Timeout > 0:
		c.timeout = o.Timeout
	}

	var jar http.CookieJar
	if o.HTTPClient != nil {
		jar = o.HTTPClient.Jar
	}

	if o.Storage != nil {
		c.store = o.Storage
	} else {
		cfg := storage.Config{Driver: storage.DriverMemory}
		if o.StorageConfig != nil {
			cfg = *o.StorageConfig
		}
		if cfg.Driver == storage.DriverCookie {
			cookieCfg := storage.CookieConfig{}
			if cfg.Cookie != nil {
				cookieCfg = *cfg.Cookie
			}
			if cookieCfg.BaseURL == "" {
				cookieCfg.BaseURL = o.BaseURL
			}
			cfg.Cookie = &cookieCfg
			if jar == nil {
				if jar, err = cookiejar.New(nil); err != nil {
					return nil, pkgerrors.Wrap(err, "failed to create cookie jar")
				}
			}
		}
		c.store, err = storage.New(context.Background(), cfg, storage.Dependencies{Jar: jar, Logger: o.Logger})
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create credential store")
		}
	}

	c.transport = o.Transport
	if c.transport == nil {
		c.transport = transport.NewHTTPTransport(&transport.Options{
			HTTPClient: o.HTTPClient,
			Jar:        jar,
			Logger:     o.Logger,
			Hooks:      o.Hooks,
		})
	}

	c.reqLogger = logging.New(o.LoggerConfig, c.logSinks()...)

	c.headers = http.Header{}
	c.headers.Set(types.HeaderAccept, types.ContentTypeJSON)
	c.headers.Set(types.HeaderUserAgent, types.UserAgent)
	if o.UserAgent != "" {
		c.headers.Set(types.HeaderUserAgent, o.UserAgent)
	}
	for k, v := range o.Headers {
		c.headers.Set(k, v)
	}

	if o.RefreshPath == "" {
		c.options.RefreshPath = types.DefaultRefreshPath
	}
	if o.RefreshSkew <= 0 {
		c.options.RefreshSkew = types.DefaultRefreshSkew
	}

	c.creds.Store(&Credentials{})
	c.loadCredentials(context.Background())

	if err := c.rebuild(o.BaseURL); err != nil {
		return nil, err
	}

	c.initServices()
	return c, nil
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	c.Accounts = &accountsService{requester: c, tokens: c, refreshPath: c.options.RefreshPath}
}

func (c *Client) logSinks() []LogSink {
	if len(c.options.LogSinks) > 0 {
		return c.options.LogSinks
	}
	if c.logger != nil {
		return []LogSink{logging.KeyValueSink{Logger: c.logger}}
	}
	return []LogSink{logging.SlogSink{Logger: slog.Default()}}
}

// loadCredentials reads persisted tokens. A failing store leaves the client
// unauthenticated rather than failing construction.
func (c *Client) loadCredentials(ctx context.Context) {
	var creds Credentials
	access, ok, err := c.store.Get(ctx, types.KeyAccessToken)
	if err != nil {
		c.warn("Failed to load access token", "error", err)
		return
	}
	if ok {
		creds.AccessToken = access
	}

	refresh, ok, err := c.store.Get(ctx, types.KeyRefreshToken)
	if err != nil {
		c.warn("Failed to load refresh token", "error", err)
	} else if ok {
		creds.RefreshToken = refresh
	}
	c.creds.Store(&creds)
}

// rebuild swaps in a core for baseURL. Callers hold mu, except NewClient.
func (c *Client) rebuild(baseURL string) error {
	next, err := core.New(core.Options{
		BaseURL:    baseURL,
		Transport:  c.transport,
		Policy:     c.policy,
		Logger:     c.reqLogger,
		Timeout:    c.timeout,
		Tokens:     c.accessToken,
		Headers:    c.headers,
		Middleware: c.options.Middleware,
		OnRetry:    c.options.OnRetry,
	})
	if err != nil {
		return err
	}
	c.core.Store(next)
	return nil
}

func (c *Client) accessToken() string {
	return c.creds.Load().AccessToken
}

// SetToken persists the access token and, when non-empty, the refresh token.
// An empty refresh leaves the stored refresh token unchanged.
//
// The in-memory credentials always match what was persisted: if the access
// token is stored but the refresh token is not, the client uses the new
// access token with the previous refresh token and the error is returned.
func (c *Client) SetToken(ctx context.Context, access, refresh string) error {
	if access == "" {
		return types.NewConfigurationError("access token is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(ctx, types.KeyAccessToken, access); err != nil {
		return pkgerrors.Wrap(err, "failed to persist access token")
	}
	next := *c.creds.Load()
	next.AccessToken = access

	var persistErr error
	if refresh != "" {
		if err := c.store.Set(ctx, types.KeyRefreshToken, refresh); err != nil {
			persistErr = pkgerrors.Wrap(err, "failed to persist refresh token")
		} else {
			next.RefreshToken = refresh
		}
	}
	c.creds.Store(&next)

	if c.logger != nil {
		c.logger.Debug("Credentials updated", "refresh_rotated", refresh != "" && persistErr == nil)
	}
	if err := c.rebuild(c.core.Load().BaseURL()); err != nil {
		return err
	}
	return persistErr
}

// ClearTokens removes both tokens. The in-memory credentials are cleared even
// when the store fails; the first store error is returned.
func (c *Client) ClearTokens(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, key := range []string{types.KeyAccessToken, types.KeyRefreshToken} {
		if err := c.store.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = pkgerrors.Wrapf(err, "failed to remove %s", key)
		}
	}
	c.creds.Store(&Credentials{})

	if err := c.rebuild(c.core.Load().BaseURL()); err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Debug("Credentials cleared")
	}
	return firstErr
}

// SetBaseURL points subsequent calls at a different origin. A cookie
// credential store moves its cookies to the new origin.
func (c *Client) SetBaseURL(baseURL string) error {
	if err := validateBaseURL(baseURL); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := storage.Rebase(context.Background(), c.store, baseURL); err != nil {
		return pkgerrors.Wrap(err, "failed to rescope credential store")
	}
	return c.rebuild(baseURL)
}

// BaseURL returns the current base URL
func (c *Client) BaseURL() string {
	return c.core.Load().BaseURL()
}

// Credentials returns a copy of the current credentials
func (c *Client) Credentials() Credentials {
	return *c.creds.Load()
}

// Token returns the current access token
func (c *Client) Token() string {
	return c.creds.Load().AccessToken
}

// RefreshToken returns the current refresh token
func (c *Client) RefreshToken() string {
	return c.creds.Load().RefreshToken
}

// IsAuthenticated reports whether an access token is present
func (c *Client) IsAuthenticated() bool {
	return c.creds.Load().Authenticated()
}

// Request performs an API call. Non-2xx responses and transport failures are
// returned as *Error. With AutoRefresh, an expiring token is renewed first and
// a 401 triggers one refresh followed by exactly one reissue. An absolute
// path on another origin is sent without the access token and never
// triggers a refresh.
func (c *Client) Request(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	req := core.Request{
		Method:     method,
		Path:       path,
		Query:      opts.Query,
		Body:       opts.Body,
		Headers:    opts.Headers,
		Idempotent: opts.Idempotent,
		NoAuth:     opts.NoAuth,
	}

	cr := c.core.Load()
	refreshable := c.options.AutoRefresh && !req.NoAuth &&
		req.Headers.Get(types.HeaderAuthorization) == "" && cr.SameOrigin(path)
	if refreshable {
		c.refreshIfExpiring(ctx)
	}

	start := c.now()
	resp, err := c.core.Load().Do(ctx, req)
	if err != nil && refreshable && errors.Is(err, ErrNotAuthenticated) && c.RefreshToken() != "" {
		if rerr := c.RefreshSession(ctx); rerr != nil {
			c.warn("Token refresh after 401 failed", "error", rerr)
		} else {
			resp, err = c.core.Load().Do(ctx, req)
		}
	}

	if err != nil {
		c.capture(ctx, method, path, c.now().Sub(start), err)
		return nil, err
	}
	return resp, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, opts)
}

// Post performs a POST request with body
func (c *Client) Post(ctx context.Context, path string, body interface{}, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, withBody(opts, body))
}

// Put performs a PUT request with body
func (c *Client) Put(ctx context.Context, path string, body interface{}, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, withBody(opts, body))
}

// Patch performs a PATCH request with body
func (c *Client) Patch(ctx context.Context, path string, body interface{}, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, withBody(opts, body))
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, opts)
}

func withBody(opts *RequestOptions, body interface{}) *RequestOptions {
	var o RequestOptions
	if opts != nil {
		o = *opts
	}
	o.Body = body
	return &o
}

// RefreshSession exchanges the refresh token for a new access token and
// stores the result. Concurrent callers share a single exchange.
func (c *Client) RefreshSession(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (interface{}, error) {
		refresh := c.RefreshToken()
		if refresh == "" {
			return nil, ErrNoRefreshToken
		}

		out, err := Fetch[auth.RefreshResponse](ctx, c, http.MethodPost, c.options.RefreshPath, &RequestOptions{
			Body:   auth.RefreshRequest{Refresh: refresh},
			NoAuth: true,
		})
		if err != nil {
			return nil, err
		}
		return nil, c.SetToken(ctx, out.Access, out.Refresh)
	})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to refresh session")
	}
	return nil
}

func (c *Client) refreshIfExpiring(ctx context.Context) {
	creds := c.creds.Load()
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return
	}
	if !auth.ExpiresWithin(creds.AccessToken, c.options.RefreshSkew, c.now()) {
		return
	}
	if err := c.RefreshSession(ctx); err != nil {
		c.warn("Proactive token refresh failed", "error", err)
	}
}

// capture reports a failed call to Sentry when it is enabled
func (c *Client) capture(ctx context.Context, method, path string, duration time.Duration, err error) {
	if !c.sentryEnabled || errors.Is(err, context.Canceled) {
		return
	}

	report := func(hub *sentry.Hub) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("http.method", method)
			scope.SetTag("error.kind", KindOf(err).String())
			scope.SetContext("api_request", map[string]interface{}{
				"path":     path,
				"status":   StatusCode(err),
				"duration": duration.String(),
			})
			hub.CaptureException(err)
		})
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		report(hub)
		return
	}
	report(sentry.CurrentHub())
}

func (c *Client) warn(msg string, keysAndValues ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

// Close flushes any pending Sentry events and closes the credential store
func (c *Client) Close() error {
	if c.sentryEnabled {
		// Flush Sentry events with a 2 second timeout
		sentry.Flush(2 * time.Second)
	}
	return storage.Close(c.store)
}

func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return types.NewConfigurationError("baseUrl is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.NewConfigurationError("baseUrl must be an absolute http(s) URL, got %q", baseURL)
	}
	return nil
}
