// Package domain defines the core business entities for the wallet backend.
// These models are independent of storage and transport and represent the
// canonical data structures used throughout the service.
package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	maxUsernameLen = 64
	maxEmailLen    = 255
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Deletion is a soft-delete record. A nil Deletion means the entity is live;
// a non-nil one carries the instant it was removed, so "deleted iff deletedAt
// set" holds by construction.
type Deletion struct {
	At time.Time `json:"at"`
}

// User is a registered wallet owner. Users are never hard-deleted; closing an
// account sets the Deletion record and the row stays behind for the ledger.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Deleted      *Deletion `json:"deleted,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsDeleted reports whether the user has been soft-deleted.
func (u *User) IsDeleted() bool { return u.Deleted != nil }

// Validate checks field constraints before the user reaches storage.
func (u *User) Validate() error {
	if u.Username == "" {
		return &ErrValidation{Field: "username", Message: "required"}
	}
	if len(u.Username) > maxUsernameLen {
		return &ErrValidation{Field: "username", Message: "must be at most 64 characters"}
	}
	if u.Email == "" {
		return &ErrValidation{Field: "email", Message: "required"}
	}
	if len(u.Email) > maxEmailLen {
		return &ErrValidation{Field: "email", Message: "must be at most 255 characters"}
	}
	if !emailPattern.MatchString(u.Email) {
		return &ErrValidation{Field: "email", Message: "invalid email address"}
	}
	return nil
}

// RefreshToken is a stored (hashed) refresh token.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// ============================================================
// Auth — request / response types
// ============================================================

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /v1/auth/login.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
}

// RefreshRequest is the body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
