package models

import (
	"time"

	"github.com/google/uuid"
)

// User account statuses
const (
	UserStatusPending   = "pending"
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusBanned    = "banned"
)

// Account-level verification statuses
const (
	VerificationStatusUnverified = "unverified"
	VerificationStatusPartial    = "partial"
	VerificationStatusVerified   = "verified"
)

// User represents a user account
type User struct {
	ID                    uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Email                 string     `json:"email" gorm:"uniqueIndex;size:255" validate:"required,email,max=254"`
	Phone                 *string    `json:"phone" gorm:"uniqueIndex;size:50" validate:"omitempty,max=50"`
	PasswordHash          string     `json:"-" gorm:"column:password_hash"`
	Status                string     `json:"status" gorm:"size:20;default:pending" validate:"required,oneof=pending active suspended banned"`
	PreferredLanguage     string     `json:"preferred_language" gorm:"size:10;default:ru"`
	EmailVerified         bool       `json:"email_verified"`
	IsAdmin               bool       `json:"is_admin"`
	VerificationStatus    string     `json:"verification_status" gorm:"size:20;default:unverified"`
	VerificationExpiresAt *time.Time `json:"verification_expires_at"`
	MFAEnabled            bool       `json:"mfa_enabled"`
	TOTPSecret            string     `json:"-" gorm:"column:totp_secret"`
	LastActiveAt          *time.Time `json:"last_active_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// IsVerified reports whether the user has a current verified identity
func (u *User) IsVerified() bool {
	if u.VerificationStatus != VerificationStatusVerified {
		return false
	}
	if u.VerificationExpiresAt != nil && u.VerificationExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// RegisterRequest is the payload for account registration
type RegisterRequest struct {
	Email             string  `json:"email" binding:"required,email,max=254"`
	Password          string  `json:"password" binding:"required,min=8,max=128"`
	Phone             *string `json:"phone" binding:"omitempty,phone,max=50"`
	PreferredLanguage string  `json:"preferred_language" binding:"omitempty,max=10"`
}

// LoginResponse carries the bearer token issued on login
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        *User     `json:"user,omitempty"`
	Requires2FA bool      `json:"requires_2fa,omitempty"`
	UserID      uuid.UUID `json:"user_id,omitempty"`
}
