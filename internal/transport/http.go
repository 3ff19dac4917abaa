package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Options for the HTTP transport
type Options struct {
	// HTTPClient is used for the exchange. Its Timeout should be zero:
	// per-attempt deadlines come from the request context.
	HTTPClient *http.Client
	// Jar, when set and HTTPClient has none, receives and supplies cookies
	Jar    http.CookieJar
	Logger types.Logger
	Hooks  *types.Hooks
}

// HTTPTransport sends requests over net/http through retryablehttp.
// Retrying is left to the caller, so the client makes a single attempt.
type HTTPTransport struct {
	client *retryablehttp.Client
	logger types.Logger
	hooks  *types.Hooks
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(opts *Options) *HTTPTransport {
	if opts == nil {
		opts = &Options{}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Jar != nil && httpClient.Jar == nil {
		c := *httpClient
		c.Jar = opts.Jar
		httpClient = &c
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = 0
	rc.CheckRetry = noRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = &retryLogger{logger: opts.Logger}
	}

	return &HTTPTransport{
		client: rc,
		logger: opts.Logger,
		hooks:  opts.Hooks,
	}
}

func noRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// Send performs one exchange
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	var body interface{}
	if len(req.Body) > 0 {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &types.Error{
			Kind:    types.KindConfiguration,
			Code:    "INVALID_REQUEST",
			Message: "failed to create request",
			Err:     err,
		}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	// Call request hook
	if t.hooks != nil && t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, httpReq.Request)
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, t.fail(ctx, err)
	}
	defer resp.Body.Close()

	// Call response hook
	if t.hooks != nil && t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, resp, duration)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.fail(ctx, err)
	}

	if t.logger != nil {
		t.logger.Debug("HTTP response", "method", req.Method, "status", resp.StatusCode, "duration", duration, "size", len(respBody))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func (t *HTTPTransport) fail(ctx context.Context, err error) error {
	netErr := types.NewNetworkError(err, isTimeout(err))
	if t.hooks != nil && t.hooks.OnError != nil {
		t.hooks.OnError(ctx, netErr)
	}
	if t.logger != nil {
		t.logger.Debug("HTTP exchange failed", "error", err, "timeout", netErr.Timeout)
	}
	return netErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
