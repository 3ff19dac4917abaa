package cfgapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/markolofsen/django-cfg-sub001/internal/auth"
	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// MockRequester is a mock implementation of Requester
type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Request(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error) {
	args := m.Called(ctx, method, path, opts)
	if resp := args.Get(0); resp != nil {
		return resp.(*Response), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTokenSetter records stored tokens
type MockTokenSetter struct {
	mock.Mock
}

func (m *MockTokenSetter) SetToken(ctx context.Context, access, refresh string) error {
	args := m.Called(ctx, access, refresh)
	return args.Error(0)
}

func jsonResponse(body string) *Response {
	return &Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(body)}
}

func TestAccountsService_Profile(t *testing.T) {
	// Setup
	requester := new(MockRequester)
	service := &accountsService{requester: requester}

	requester.On("Request", mock.Anything, http.MethodGet, "/cfg/accounts/profile/", (*RequestOptions)(nil)).
		Return(jsonResponse(`{
			"id": 42,
			"email": "ada@example.com",
			"first_name": "Ada",
			"last_name": "Lovelace",
			"full_name": "Ada Lovelace",
			"date_joined": "2024-01-02T03:04:05Z"
		}`), nil)

	profile, err := service.Profile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42, profile.ID)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, "Ada Lovelace", profile.FullName)
	require.NotNil(t, profile.DateJoined)
	assert.Equal(t, 2024, profile.DateJoined.Year())
	assert.Nil(t, profile.LastLogin)

	requester.AssertExpectations(t)
}

func TestAccountsService_ProfileValidation(t *testing.T) {
	requester := new(MockRequester)
	service := &accountsService{requester: requester}

	requester.On("Request", mock.Anything, http.MethodGet, "/cfg/accounts/profile/", mock.Anything).
		Return(jsonResponse(`{"email":"not-an-email"}`), nil)

	_, err := service.Profile(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Len(t, apiErr.Fields, 2)
	assert.Equal(t, "id", apiErr.Fields[0].Field)
	assert.Equal(t, "required", apiErr.Fields[0].Rule)
	assert.Equal(t, "email", apiErr.Fields[1].Field)
	assert.Equal(t, "email", apiErr.Fields[1].Rule)
}

func TestAccountsService_ProfileUnauthenticated(t *testing.T) {
	requester := new(MockRequester)
	service := &accountsService{requester: requester}

	requester.On("Request", mock.Anything, http.MethodGet, "/cfg/accounts/profile/", mock.Anything).
		Return(nil, types.NewHTTPError(http.StatusUnauthorized, []byte(`{"detail":"Authentication credentials were not provided."}`)))

	_, err := service.Profile(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	assert.Contains(t, err.Error(), "failed to get profile")
}

func TestAccountsService_UpdateProfile(t *testing.T) {
	requester := new(MockRequester)
	service := &accountsService{requester: requester}

	company := "Analytical Engines"
	requester.On("Request", mock.Anything, http.MethodPatch, "/cfg/accounts/profile/partial/", mock.MatchedBy(func(opts *RequestOptions) bool {
		params, ok := opts.Body.(*UpdateProfileParams)
		return ok && params.Company != nil && *params.Company == company && params.FirstName == nil
	})).Return(jsonResponse(`{"id":42,"company":"Analytical Engines"}`), nil)

	profile, err := service.UpdateProfile(context.Background(), &UpdateProfileParams{Company: &company})

	require.NoError(t, err)
	assert.Equal(t, company, profile.Company)
	requester.AssertExpectations(t)

	_, err = service.UpdateProfile(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestAccountsService_RequestOTP(t *testing.T) {
	tests := []struct {
		name        string
		identifier  string
		wantChannel string
	}{
		{"email", "ada@example.com", OTPChannelEmail},
		{"phone", "+15550100", OTPChannelPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requester := new(MockRequester)
			service := &accountsService{requester: requester}

			requester.On("Request", mock.Anything, http.MethodPost, "/cfg/accounts/otp/request/", mock.MatchedBy(func(opts *RequestOptions) bool {
				params, ok := opts.Body.(*OTPRequestParams)
				return ok && opts.NoAuth && params.Identifier == tt.identifier && params.Channel == tt.wantChannel
			})).Return(jsonResponse(`{"message":"OTP sent"}`), nil)

			result, err := service.RequestOTP(context.Background(), &OTPRequestParams{Identifier: tt.identifier})

			require.NoError(t, err)
			assert.Equal(t, "OTP sent", result.Message)
			requester.AssertExpectations(t)
		})
	}
}

func TestAccountsService_RequestOTPRequiresIdentifier(t *testing.T) {
	service := &accountsService{requester: new(MockRequester)}

	_, err := service.RequestOTP(context.Background(), &OTPRequestParams{Identifier: "  "})
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestAccountsService_VerifyOTPStoresTokens(t *testing.T) {
	requester := new(MockRequester)
	tokens := new(MockTokenSetter)
	service := &accountsService{requester: requester, tokens: tokens}

	requester.On("Request", mock.Anything, http.MethodPost, "/cfg/accounts/otp/verify/", mock.MatchedBy(func(opts *RequestOptions) bool {
		params, ok := opts.Body.(*OTPVerifyParams)
		return ok && opts.NoAuth && params.OTP == "123456" && params.Channel == OTPChannelEmail
	})).Return(jsonResponse(`{"access":"acc","refresh":"ref","user":{"id":42,"email":"ada@example.com"}}`), nil)
	tokens.On("SetToken", mock.Anything, "acc", "ref").Return(nil)

	result, err := service.VerifyOTP(context.Background(), &OTPVerifyParams{Identifier: "ada@example.com", OTP: "123456"})

	require.NoError(t, err)
	assert.Equal(t, "acc", result.Access)
	require.NotNil(t, result.User)
	assert.Equal(t, 42, result.User.ID)
	requester.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestAccountsService_VerifyOTPStoreFailure(t *testing.T) {
	requester := new(MockRequester)
	tokens := new(MockTokenSetter)
	service := &accountsService{requester: requester, tokens: tokens}

	requester.On("Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(jsonResponse(`{"access":"acc","refresh":"ref"}`), nil)
	tokens.On("SetToken", mock.Anything, "acc", "ref").Return(errors.New("disk full"))

	_, err := service.VerifyOTP(context.Background(), &OTPVerifyParams{Identifier: "+15550100", OTP: "000000"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store tokens")
	assert.Contains(t, err.Error(), "disk full")
}

func TestAccountsService_VerifyOTPMissingTokens(t *testing.T) {
	requester := new(MockRequester)
	tokens := new(MockTokenSetter)
	service := &accountsService{requester: requester, tokens: tokens}

	requester.On("Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(jsonResponse(`{"access":"acc"}`), nil)

	_, err := service.VerifyOTP(context.Background(), &OTPVerifyParams{Identifier: "a@b.co", OTP: "1"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	tokens.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountsService_RefreshToken(t *testing.T) {
	requester := new(MockRequester)
	tokens := new(MockTokenSetter)
	service := &accountsService{requester: requester, tokens: tokens, refreshPath: "/auth/refresh/"}

	requester.On("Request", mock.Anything, http.MethodPost, "/auth/refresh/", mock.MatchedBy(func(opts *RequestOptions) bool {
		body, ok := opts.Body.(auth.RefreshRequest)
		return ok && opts.NoAuth && body.Refresh == "r1"
	})).Return(jsonResponse(`{"access":"a2","refresh":"r2"}`), nil)

	pair, err := service.RefreshToken(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, &TokenPair{Access: "a2", Refresh: "r2"}, pair)
	requester.AssertExpectations(t)
	tokens.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything)

	_, err = service.RefreshToken(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNoRefreshToken))
}

func TestClient_AccountsAgainstServer(t *testing.T) {
	server := newAccountsServer(t)
	defer server.Close()

	client, err := NewClient(&ClientOptions{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Accounts.Profile(context.Background())
	require.True(t, errors.Is(err, ErrNotAuthenticated))

	_, err = client.Accounts.VerifyOTP(context.Background(), &OTPVerifyParams{Identifier: "ada@example.com", OTP: "123456"})
	require.NoError(t, err)
	assert.True(t, client.IsAuthenticated())

	profile, err := client.Accounts.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", profile.Email)
}

func newAccountsServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/cfg/accounts/otp/verify/":
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"access":"issued","refresh":"issued-refresh"}`))
		case "/cfg/accounts/profile/":
			if r.Header.Get("Authorization") != "Bearer issued" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Authentication credentials were not provided."}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":42,"email":"ada@example.com"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}
