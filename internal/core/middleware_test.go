package core

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

func TestDefaultHeaders_KeepsCallerValues(t *testing.T) {
	mw := DefaultHeaders(http.Header{
		"Accept":     {"application/json"},
		"User-Agent": {"default-agent"},
	})

	in := Request{Headers: http.Header{"User-Agent": {"caller-agent"}}}
	out, err := mw(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "application/json", out.Headers.Get("Accept"))
	assert.Equal(t, "caller-agent", out.Headers.Get("User-Agent"))
	assert.Empty(t, in.Headers.Get("Accept"), "input headers untouched")
}

func TestRequestID_OnlyWhenMissing(t *testing.T) {
	mw := RequestID()

	out, err := mw(context.Background(), Request{})
	require.NoError(t, err)
	id := out.Headers.Get(types.HeaderRequestID)
	assert.Len(t, id, 36)

	again, err := mw(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, id, again.Headers.Get(types.HeaderRequestID))
}

func TestBearerToken_EmptyTokenAddsNothing(t *testing.T) {
	out, err := BearerToken(func() string { return "" })(context.Background(), Request{})

	require.NoError(t, err)
	assert.Empty(t, out.Headers.Get(types.HeaderAuthorization))

	out, err = BearerToken(nil)(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, out.Headers.Get(types.HeaderAuthorization))
}
