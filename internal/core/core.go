// Package core executes API calls: it builds each request through the
// middleware chain, sends it, classifies failures and retries under the
// configured policy.
//
// A Core is immutable. Callers that need different settings build a new
// one and swap it in.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markolofsen/django-cfg-sub001/internal/logging"
	"github.com/markolofsen/django-cfg-sub001/internal/retry"
	"github.com/markolofsen/django-cfg-sub001/internal/transport"
	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Request describes one API call
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers http.Header
	// Idempotent marks a mutating request as safe to repeat
	Idempotent bool
	// NoAuth suppresses bearer token injection
	NoAuth bool
}

// WaitFunc blocks for d or until ctx is done
type WaitFunc func(ctx context.Context, d time.Duration) error

// Options configures a Core
type Options struct {
	BaseURL   string
	Transport transport.Transport
	Policy    *retry.Policy
	Logger    *logging.Logger
	// Timeout bounds each attempt. Zero means no per-attempt bound.
	Timeout time.Duration
	Tokens  TokenSource
	// Headers are sent unless the request sets them itself. Authorization is
	// dropped; credentials only come from Tokens or the request.
	Headers    http.Header
	Middleware []Middleware
	OnRetry    retry.Observer
	Wait       WaitFunc
}

// Core is the per-call execution engine
type Core struct {
	baseURL   string
	origin    *url.URL
	transport transport.Transport
	policy    *retry.Policy
	logger    *logging.Logger
	timeout   time.Duration
	chain     []Middleware
	requestID Middleware
	onRetry   retry.Observer
	wait      WaitFunc
}

// New validates opts and builds a Core
func New(opts Options) (*Core, error) {
	if opts.BaseURL == "" {
		return nil, types.NewConfigurationError("baseUrl is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, types.NewConfigurationError("baseUrl must be an absolute URL, got %q", opts.BaseURL)
	}
	if opts.Transport == nil {
		return nil, types.NewConfigurationError("transport is required")
	}

	policy := opts.Policy
	if policy == nil {
		if policy, err = retry.NewPolicy(nil); err != nil {
			return nil, err
		}
	}

	wait := opts.Wait
	if wait == nil {
		wait = Sleep
	}

	headers := opts.Headers.Clone()
	headers.Del(types.HeaderAuthorization)

	chain := make([]Middleware, 0, len(opts.Middleware)+2)
	chain = append(chain, DefaultHeaders(headers), BearerToken(opts.Tokens))
	chain = append(chain, opts.Middleware...)

	return &Core{
		baseURL:   opts.BaseURL,
		origin:    u,
		transport: opts.Transport,
		policy:    policy,
		logger:    opts.Logger,
		timeout:   opts.Timeout,
		chain:     chain,
		requestID: RequestID(),
		onRetry:   opts.OnRetry,
		wait:      wait,
	}, nil
}

// BaseURL returns the base every relative path is resolved against
func (c *Core) BaseURL() string {
	return c.baseURL
}

// SameOrigin reports whether path resolves to the scheme and host of the
// base URL. Relative paths always do.
func (c *Core) SameOrigin(path string) bool {
	target, err := transport.ResolveURL(c.baseURL, path, nil)
	if err != nil {
		return false
	}
	return c.sameOrigin(target)
}

func (c *Core) sameOrigin(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, c.origin.Scheme) && strings.EqualFold(u.Host, c.origin.Host)
}

// Policy returns the retry policy
func (c *Core) Policy() *retry.Policy {
	return c.policy
}

// Do runs req to completion. A 2xx response is returned as is. Any other
// outcome is a *types.Error, except parent context cancellation, which
// returns ctx.Err(). A path that resolves to another origin is sent
// without the bearer token.
func (c *Core) Do(ctx context.Context, req Request) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	if contentType != "" && req.Headers.Get(types.HeaderContentType) == "" {
		h := req.Headers.Clone()
		if h == nil {
			h = http.Header{}
		}
		h.Set(types.HeaderContentType, contentType)
		req.Headers = h
	}

	// The id is assigned once so every attempt of the call shares it
	req, err = c.requestID(ctx, req)
	if err != nil {
		return nil, err
	}
	requestID := req.Headers.Get(types.HeaderRequestID)

	target, err := transport.ResolveURL(c.baseURL, req.Path, req.Query)
	if err != nil {
		return nil, types.NewConfigurationError("cannot resolve %q against %q: %v", req.Path, c.baseURL, err)
	}
	// The access token never leaves the API origin
	if !c.sameOrigin(target) {
		req.NoAuth = true
	}

	retryable := retryEligible(req)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		built, err := c.build(ctx, req)
		if err != nil {
			return nil, err
		}

		resp, err := c.send(ctx, attempt, requestID, built, target, body)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		var decision retry.Decision
		if retryable {
			decision = c.policy.ShouldRetry(attempt, err)
		}
		if c.onRetry != nil {
			c.onRetry(ctx, retry.AttemptInfo{
				Attempt:   attempt,
				Err:       err,
				Kind:      types.KindOf(err),
				Delay:     decision.Delay,
				WillRetry: decision.Retry,
			})
		}
		if !decision.Retry {
			return nil, err
		}

		if err := c.wait(ctx, decision.Delay); err != nil {
			return nil, err
		}
	}
}

func (c *Core) build(ctx context.Context, req Request) (Request, error) {
	var err error
	for _, mw := range c.chain {
		if req, err = mw(ctx, req); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (c *Core) send(ctx context.Context, attempt int, requestID string, req Request, target string, body []byte) (*transport.Response, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.logger.Enabled() {
		c.logger.RequestIssued(requestID, req.Method, req.Path, attempt, req.Headers)
	}

	start := time.Now()
	resp, err := c.transport.Send(attemptCtx, &transport.Request{
		Method: req.Method,
		URL:    target,
		Header: req.Headers,
		Body:   body,
	})
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		netErr := classify(attemptCtx, err)
		netErr.RequestID = requestID
		c.logger.ErrorRaised(requestID, req.Method, req.Path, attempt, duration, netErr)
		return nil, netErr
	}

	if c.logger.Enabled() {
		c.logger.ResponseReceived(requestID, req.Method, req.Path, attempt, resp.StatusCode, duration, resp.Header)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := types.NewHTTPError(resp.StatusCode, resp.Body)
		httpErr.RequestID = requestID
		c.logger.ErrorRaised(requestID, req.Method, req.Path, attempt, duration, httpErr)
		return nil, httpErr
	}
	return resp, nil
}

// classify maps a transport failure to a NetworkFailure unless the
// transport already reported a taxonomy error
func classify(attemptCtx context.Context, err error) *types.Error {
	timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)

	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		if apiErr.Kind == types.KindNetworkFailure && timedOut && !apiErr.Timeout {
			return types.NewNetworkError(apiErr.Err, true)
		}
		return apiErr
	}
	return types.NewNetworkError(err, timedOut || errors.Is(err, context.DeadlineExceeded))
}

func retryEligible(req Request) bool {
	if req.Idempotent {
		return true
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func encodeBody(body interface{}) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case json.RawMessage:
		return b, types.ContentTypeJSON, nil
	case string:
		return []byte(b), "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", types.NewValidationError("failed to read request body", nil, err)
		}
		return data, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", types.NewValidationError("failed to encode request body", nil, err)
		}
		return data, types.ContentTypeJSON, nil
	}
}

// Sleep waits for d, returning early with ctx.Err() when ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
