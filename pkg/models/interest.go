package models

import (
	"time"

	"github.com/google/uuid"
)

// Interest statuses
const (
	InterestStatusPending   = "pending"
	InterestStatusAccepted  = "accepted"
	InterestStatusDeclined  = "declined"
	InterestStatusExpired   = "expired"
	InterestStatusCancelled = "cancelled"
)

// InterestTTL is how long a pending interest stays open before expiring
const InterestTTL = 14 * 24 * time.Hour

// Interest represents one user expressing interest in another
type Interest struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	FromUserID  uuid.UUID  `json:"from_user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	ToUserID    uuid.UUID  `json:"to_user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Message     *string    `json:"message" gorm:"size:200" validate:"omitempty,max=200"`
	Status      string     `json:"status" gorm:"size:20;default:pending" validate:"required,oneof=pending accepted declined expired cancelled"`
	RespondedAt *time.Time `json:"responded_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// InterestWithProfile pairs an interest with the other party's card
type InterestWithProfile struct {
	Interest Interest     `json:"interest"`
	Profile  ProfileBrief `json:"profile"`
}
