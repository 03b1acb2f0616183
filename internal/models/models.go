package models

import "errors"

// URLRecord is one shortened link. ShortCode and OwnerID never change after creation.
type URLRecord struct {
	ShortCode string `json:"short_code"`
	LongURL   string `json:"long_url"`
	OwnerID   string `json:"-"`
}

// UserURLs maps short codes to the records of a single owner.
type UserURLs map[string]URLRecord

// UserURL is a record prepared for presentation.
type UserURL struct {
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
	LongURL   string `json:"long_url"`
}

// CredentialsForm is the body of the register and login forms.
type CredentialsForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// LongURLForm is the body of the create and update forms.
type LongURLForm struct {
	LongURL string
}

// InternalStatsResponse is the body of GET /api/internal/stats.
type InternalStatsResponse struct {
	URLs  int64 `json:"urls"`
	Users int64 `json:"users"`
}

var (
	ErrValidation       = errors.New("email or password is empty")
	ErrDuplicateEmail   = errors.New("email is already registered")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("URL not found")
	ErrForbidden        = errors.New("access to the URL is forbidden")
	ErrAuthentication   = errors.New("authentication failed")
)

// AuthFailureReason tells why a credential check failed.
type AuthFailureReason int

const (
	ReasonNotFound AuthFailureReason = iota + 1
	ReasonWrongPassword
)

// String returns a human readable reason.
func (r AuthFailureReason) String() string {
	switch r {
	case ReasonNotFound:
		return "user not found"
	case ReasonWrongPassword:
		return "wrong password"
	}

	return "unknown reason"
}

// AuthenticationError is returned by credential verification. It matches ErrAuthentication
// under errors.Is.
type AuthenticationError struct {
	Reason AuthFailureReason
}

// Error includes the failure reason.
func (e *AuthenticationError) Error() string {
	return ErrAuthentication.Error() + ": " + e.Reason.String()
}

// Is makes errors.Is(err, ErrAuthentication) true for any reason.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}
