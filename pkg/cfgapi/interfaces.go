package cfgapi

import "context"

// AccountsService covers the account and authentication endpoints
type AccountsService interface {
	// Profile retrieves the authenticated user's profile
	Profile(ctx context.Context) (*Profile, error)

	// UpdateProfile applies a partial update to the profile
	UpdateProfile(ctx context.Context, params *UpdateProfileParams) (*Profile, error)

	// RequestOTP sends a one-time password to an email or phone number
	RequestOTP(ctx context.Context, params *OTPRequestParams) (*OTPRequestResult, error)

	// VerifyOTP exchanges a one-time password for tokens and stores them
	VerifyOTP(ctx context.Context, params *OTPVerifyParams) (*OTPVerifyResult, error)

	// RefreshToken exchanges a refresh token for a new pair without storing it
	RefreshToken(ctx context.Context, refresh string) (*TokenPair, error)
}

// tokenSetter stores credentials obtained by a resource call
type tokenSetter interface {
	SetToken(ctx context.Context, access, refresh string) error
}
