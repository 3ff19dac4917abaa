package cfgapi

import "time"

// OTP delivery channels
const (
	OTPChannelEmail = "email"
	OTPChannelPhone = "phone"
)

// Profile represents the authenticated user
type Profile struct {
	ID          int        `json:"id" validate:"required"`
	Email       string     `json:"email" validate:"omitempty,email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	FullName    string     `json:"full_name"`
	Initials    string     `json:"initials"`
	DisplayName string     `json:"display_username"`
	Company     string     `json:"company"`
	Phone       string     `json:"phone"`
	Position    string     `json:"position"`
	Avatar      string     `json:"avatar"`
	DateJoined  *time.Time `json:"date_joined,omitempty"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// UpdateProfileParams for partially updating a profile. Nil fields are left unchanged.
type UpdateProfileParams struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Company   *string `json:"company,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Position  *string `json:"position,omitempty"`
}

// OTPRequestParams for requesting a one-time password
type OTPRequestParams struct {
	Identifier string `json:"identifier"`
	Channel    string `json:"channel,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

// OTPRequestResult is the server acknowledgement of an OTP request
type OTPRequestResult struct {
	Message string `json:"message"`
}

// OTPVerifyParams for verifying a one-time password
type OTPVerifyParams struct {
	Identifier string `json:"identifier"`
	OTP        string `json:"otp"`
	Channel    string `json:"channel,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

// OTPVerifyResult carries the issued tokens and the user they belong to
type OTPVerifyResult struct {
	Access  string   `json:"access" validate:"required"`
	Refresh string   `json:"refresh" validate:"required"`
	User    *Profile `json:"user,omitempty"`
}

// TokenPair is an access token and its refresh token
type TokenPair struct {
	Access  string `json:"access" validate:"required"`
	Refresh string `json:"refresh,omitempty"`
}
