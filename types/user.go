package types

import "time"

// Roles a user account can hold. The store enforces the same set with a
// CHECK constraint.
const (
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
	RoleMember = "member"
)

// ValidRole reports whether role is one of the accepted account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOwner, RoleMember:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, assigned by the store.
	ID int `json:"id" db:"id"`

	// Name is the user's given name.
	Name string `json:"name" db:"name"`

	// Surname is the user's family name.
	Surname string `json:"surname" db:"surname"`

	// Email is the user's email address. Unique across all users.
	Email string `json:"email" db:"email"`

	// NationalID is the user's national identity document number.
	// Unique across all users.
	NationalID string `json:"national_id" db:"national_id"`

	// Nickname is the unique handle chosen by the user.
	Nickname string `json:"nickname" db:"nickname"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Role indicates the user's authorization level within the system.
	// One of "admin", "owner", or "member".
	Role string `json:"role" db:"role"`

	// CreatedAt is the timestamp when the user account was created.
	// Set once at creation, never mutated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Active indicates whether the account is enabled. Defaults to true.
	Active bool `json:"active" db:"active"`

	// Image is the object-storage key of the user's avatar, empty if none.
	Image string `json:"image,omitempty" db:"image"`
}

// UserPatch describes a partial update to a user. A nil field is left
// untouched. ID and CreatedAt are not patchable.
type UserPatch struct {
	Name       *string `json:"name"`
	Surname    *string `json:"surname"`
	Email      *string `json:"email"`
	NationalID *string `json:"national_id"`
	Nickname   *string `json:"nickname"`
	Password   *string `json:"password"`
	Role       *string `json:"role"`
	Active     *bool   `json:"active"`
	Image      *string `json:"image"`
}

// TouchesUnique reports whether the patch changes any globally unique field.
func (p UserPatch) TouchesUnique() bool {
	return p.Email != nil || p.NationalID != nil || p.Nickname != nil
}

// IsEmpty reports whether the patch carries no fields at all.
func (p UserPatch) IsEmpty() bool {
	return p == UserPatch{}
}
