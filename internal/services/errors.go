package services

import "errors"

var (
	// ErrValidation marks input rejected before any mutation.
	ErrValidation = errors.New("invalid input")

	// ErrConflict marks a duplicate email, national id, or nickname.
	ErrConflict = errors.New("already in use")

	// ErrNotFound marks an unknown user id.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. Callers must not be able to tell which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers bad signatures, malformed claims, and
	// elapsed expiry alike.
	ErrInvalidToken = errors.New("invalid token")
)
