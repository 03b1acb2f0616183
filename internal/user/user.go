// Package user defines the registered account used for authentication
// and URL ownership.
package user

// User is a registered account. None of its fields change after registration.
type User struct {
	// ID is the generated six-symbol identifier, see package idgenerator.
	ID string `json:"id"`

	// Email is unique across users and compared case-sensitively.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the password. The plaintext is never kept.
	PasswordHash []byte `json:"-"`
}
