package types

import "time"

// SessionClaims is the identity asserted by a validated session token.
// It is derived from the token on every request and never persisted.
type SessionClaims struct {
	// SubjectID is the ID of the user the token was issued for.
	SubjectID int `json:"subject_id"`

	// Email is the email address the token was issued for.
	Email string `json:"email"`

	// IssuedAt is when the token was signed.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is when the token stops being valid.
	ExpiresAt time.Time `json:"expires_at"`
}
