package cfgapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/markolofsen/django-cfg-sub001/internal/auth"
	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

const (
	profilePath       = "/cfg/accounts/profile/"
	profileUpdatePath = "/cfg/accounts/profile/partial/"
	otpRequestPath    = "/cfg/accounts/otp/request/"
	otpVerifyPath     = "/cfg/accounts/otp/verify/"
)

// accountsService implements the AccountsService interface
type accountsService struct {
	requester   Requester
	tokens      tokenSetter
	refreshPath string
}

// Profile retrieves the authenticated user's profile
func (s *accountsService) Profile(ctx context.Context) (*Profile, error) {
	profile, err := Fetch[Profile](ctx, s.requester, http.MethodGet, profilePath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get profile")
	}
	return profile, nil
}

// UpdateProfile applies a partial update to the profile
func (s *accountsService) UpdateProfile(ctx context.Context, params *UpdateProfileParams) (*Profile, error) {
	if params == nil {
		return nil, types.NewConfigurationError("profile update params are required")
	}

	profile, err := Fetch[Profile](ctx, s.requester, http.MethodPatch, profileUpdatePath, &RequestOptions{Body: params})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update profile")
	}
	return profile, nil
}

// RequestOTP sends a one-time password to an email or phone number
func (s *accountsService) RequestOTP(ctx context.Context, params *OTPRequestParams) (*OTPRequestResult, error) {
	if params == nil || strings.TrimSpace(params.Identifier) == "" {
		return nil, types.NewConfigurationError("otp identifier is required")
	}
	req := *params
	if req.Channel == "" {
		req.Channel = otpChannel(req.Identifier)
	}

	result, err := Fetch[OTPRequestResult](ctx, s.requester, http.MethodPost, otpRequestPath, &RequestOptions{
		Body:   &req,
		NoAuth: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to request otp")
	}
	return result, nil
}

// VerifyOTP exchanges a one-time password for tokens and stores them
func (s *accountsService) VerifyOTP(ctx context.Context, params *OTPVerifyParams) (*OTPVerifyResult, error) {
	if params == nil || params.Identifier == "" || params.OTP == "" {
		return nil, types.NewConfigurationError("otp identifier and code are required")
	}
	req := *params
	if req.Channel == "" {
		req.Channel = otpChannel(req.Identifier)
	}

	result, err := Fetch[OTPVerifyResult](ctx, s.requester, http.MethodPost, otpVerifyPath, &RequestOptions{
		Body:   &req,
		NoAuth: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify otp")
	}

	if s.tokens != nil {
		if err := s.tokens.SetToken(ctx, result.Access, result.Refresh); err != nil {
			return nil, errors.Wrap(err, "failed to store tokens")
		}
	}
	return result, nil
}

// RefreshToken exchanges a refresh token for a new pair without storing it
func (s *accountsService) RefreshToken(ctx context.Context, refresh string) (*TokenPair, error) {
	if refresh == "" {
		return nil, types.ErrNoRefreshToken
	}

	path := s.refreshPath
	if path == "" {
		path = types.DefaultRefreshPath
	}

	pair, err := Fetch[TokenPair](ctx, s.requester, http.MethodPost, path, &RequestOptions{
		Body:   auth.RefreshRequest{Refresh: refresh},
		NoAuth: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to refresh token")
	}
	return pair, nil
}

func otpChannel(identifier string) string {
	if strings.Contains(identifier, "@") {
		return OTPChannelEmail
	}
	return OTPChannelPhone
}
