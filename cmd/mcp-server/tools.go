package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/markolofsen/django-cfg-sub001/pkg/cfgapi"
)

// apiTools holds the API client and implements all tool handlers
type apiTools struct {
	client *cfgapi.Client
}

// RequestInput describes a raw API call
type RequestInput struct {
	Method  string            `json:"method" jsonschema:"HTTP method such as GET or POST"`
	Path    string            `json:"path" jsonschema:"Path relative to the API base URL"`
	Query   map[string]string `json:"query,omitempty" jsonschema:"Query parameters (optional)"`
	Body    string            `json:"body,omitempty" jsonschema:"Request body; sent as JSON when it parses as JSON (optional)"`
	Headers map[string]string `json:"headers,omitempty" jsonschema:"Extra request headers (optional)"`
}

// RequestOutput is the result of a raw API call
type RequestOutput struct {
	Status    int    `json:"status" jsonschema:"HTTP status code, 0 when no response was received"`
	Body      any    `json:"body,omitempty" jsonschema:"Response body when it is JSON"`
	Text      string `json:"text,omitempty" jsonschema:"Response body when it is not JSON"`
	ErrorKind string `json:"errorKind,omitempty" jsonschema:"Error kind when the call failed"`
	Error     string `json:"error,omitempty" jsonschema:"Error message when the call failed"`
}

func (t *apiTools) Request(ctx context.Context, req *mcp.CallToolRequest, input RequestInput) (*mcp.CallToolResult, RequestOutput, error) {
	method := strings.ToUpper(strings.TrimSpace(input.Method))
	if method == "" {
		method = http.MethodGet
	}
	if input.Path == "" {
		return nil, RequestOutput{}, errors.New("path is required")
	}

	opts := &cfgapi.RequestOptions{}
	if len(input.Query) > 0 {
		opts.Query = url.Values{}
		for k, v := range input.Query {
			opts.Query.Set(k, v)
		}
	}
	if len(input.Headers) > 0 {
		opts.Headers = http.Header{}
		for k, v := range input.Headers {
			opts.Headers.Set(k, v)
		}
	}
	if input.Body != "" {
		if json.Valid([]byte(input.Body)) {
			opts.Body = json.RawMessage(input.Body)
		} else {
			opts.Body = input.Body
		}
	}

	resp, err := t.client.Request(ctx, method, input.Path, opts)
	if err != nil {
		var apiErr *cfgapi.Error
		if !errors.As(err, &apiErr) {
			return nil, RequestOutput{}, err
		}
		out := RequestOutput{
			Status:    apiErr.StatusCode,
			ErrorKind: apiErr.Kind.String(),
			Error:     apiErr.Error(),
		}
		setBody(&out, apiErr.Body)
		return nil, out, nil
	}

	out := RequestOutput{Status: resp.StatusCode}
	setBody(&out, resp.Body)
	return nil, out, nil
}

func setBody(out *RequestOutput, body []byte) {
	if len(body) == 0 {
		return
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		out.Body = decoded
		return
	}
	out.Text = string(body)
}

// GetProfileInput takes no parameters
type GetProfileInput struct {
	// No input parameters needed
}

// ProfileOutput is the signed-in user's profile
type ProfileOutput struct {
	ID         int        `json:"id" jsonschema:"User ID"`
	Email      string     `json:"email" jsonschema:"Email address"`
	Name       string     `json:"name,omitempty" jsonschema:"Full name"`
	Company    string     `json:"company,omitempty" jsonschema:"Company"`
	Phone      string     `json:"phone,omitempty" jsonschema:"Phone number"`
	DateJoined *time.Time `json:"dateJoined,omitempty" jsonschema:"When the user joined"`
}

func (t *apiTools) GetProfile(ctx context.Context, req *mcp.CallToolRequest, input GetProfileInput) (*mcp.CallToolResult, ProfileOutput, error) {
	profile, err := t.client.Accounts.Profile(ctx)
	if err != nil {
		return nil, ProfileOutput{}, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return nil, ProfileOutput{
		ID:         profile.ID,
		Email:      profile.Email,
		Name:       profile.FullName,
		Company:    profile.Company,
		Phone:      profile.Phone,
		DateJoined: profile.DateJoined,
	}, nil
}

// SessionStatusInput takes no parameters
type SessionStatusInput struct {
	// No input parameters needed
}

// SessionStatusOutput describes the held credentials without revealing them
type SessionStatusOutput struct {
	BaseURL         string `json:"baseUrl" jsonschema:"API base URL"`
	Authenticated   bool   `json:"authenticated" jsonschema:"Whether an access token is held"`
	HasRefreshToken bool   `json:"hasRefreshToken" jsonschema:"Whether a refresh token is held"`
}

func (t *apiTools) SessionStatus(ctx context.Context, req *mcp.CallToolRequest, input SessionStatusInput) (*mcp.CallToolResult, SessionStatusOutput, error) {
	creds := t.client.Credentials()
	return nil, SessionStatusOutput{
		BaseURL:         t.client.BaseURL(),
		Authenticated:   creds.Authenticated(),
		HasRefreshToken: creds.RefreshToken != "",
	}, nil
}

// RefreshSessionInput takes no parameters
type RefreshSessionInput struct {
	// No input parameters needed
}

// RefreshSessionOutput reports the refreshed session
type RefreshSessionOutput struct {
	Refreshed bool `json:"refreshed" jsonschema:"Whether a new access token was stored"`
}

func (t *apiTools) RefreshSession(ctx context.Context, req *mcp.CallToolRequest, input RefreshSessionInput) (*mcp.CallToolResult, RefreshSessionOutput, error) {
	if err := t.client.RefreshSession(ctx); err != nil {
		return nil, RefreshSessionOutput{}, fmt.Errorf("failed to refresh session: %w", err)
	}
	return nil, RefreshSessionOutput{Refreshed: true}, nil
}
