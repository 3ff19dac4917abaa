package core

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Middleware transforms a request before it is sent. It must not mutate
// the headers it receives; set headers on a clone instead.
type Middleware func(ctx context.Context, req Request) (Request, error)

// TokenSource returns the current access token, or "" when there is none
type TokenSource func() string

// DefaultHeaders sets each header the request does not already carry
func DefaultHeaders(defaults http.Header) Middleware {
	return func(_ context.Context, req Request) (Request, error) {
		if len(defaults) == 0 {
			return req, nil
		}
		h := req.Headers.Clone()
		if h == nil {
			h = http.Header{}
		}
		for k, vs := range defaults {
			if h.Get(k) != "" || len(vs) == 0 {
				continue
			}
			h[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
		req.Headers = h
		return req, nil
	}
}

// RequestID tags the request with a fresh X-Request-ID unless it has one
func RequestID() Middleware {
	return func(_ context.Context, req Request) (Request, error) {
		if req.Headers.Get(types.HeaderRequestID) != "" {
			return req, nil
		}
		h := req.Headers.Clone()
		if h == nil {
			h = http.Header{}
		}
		h.Set(types.HeaderRequestID, uuid.NewString())
		req.Headers = h
		return req, nil
	}
}

// BearerToken adds "Authorization: Bearer <token>" from tokens. A caller
// supplied Authorization header is left alone, and NoAuth requests are skipped.
func BearerToken(tokens TokenSource) Middleware {
	return func(_ context.Context, req Request) (Request, error) {
		if tokens == nil || req.NoAuth || req.Headers.Get(types.HeaderAuthorization) != "" {
			return req, nil
		}
		token := tokens()
		if token == "" {
			return req, nil
		}
		h := req.Headers.Clone()
		if h == nil {
			h = http.Header{}
		}
		h.Set(types.HeaderAuthorization, "Bearer "+token)
		req.Headers = h
		return req, nil
	}
}
