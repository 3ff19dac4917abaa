// Package transport sends fully built HTTP requests.
//
// A Transport performs exactly one exchange per Send. It reports failures
// to obtain a response as network failures and returns every response,
// whatever its status, to the caller.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Request is a ready-to-send request
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends one request and returns its response
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to Transport
type Func func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req)
func (f Func) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// ResolveURL joins path onto base and merges query. An absolute http(s)
// path is used as is, ignoring base.
func ResolveURL(base, path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrapf(err, "invalid path %q", path)
	}

	var u *url.URL
	if ref.IsAbs() && (ref.Scheme == "http" || ref.Scheme == "https") {
		u = ref
	} else {
		u, err = url.Parse(base)
		if err != nil {
			return "", errors.Wrapf(err, "invalid base URL %q", base)
		}
		// Join the escaped forms so encoded separators such as %2F survive
		raw := joinPath(u.EscapedPath(), ref.EscapedPath())
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			return "", errors.Wrapf(err, "invalid path %q", path)
		}
		u.Path = decoded
		u.RawPath = raw
		if ref.RawQuery != "" {
			vals := u.Query()
			for k, vs := range ref.Query() {
				for _, v := range vs {
					vals.Add(k, v)
				}
			}
			u.RawQuery = vals.Encode()
		}
	}

	if len(query) > 0 {
		vals := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				vals.Add(k, v)
			}
		}
		u.RawQuery = vals.Encode()
	}
	return u.String(), nil
}

func joinPath(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}
