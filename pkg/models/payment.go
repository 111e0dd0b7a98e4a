package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment types
const (
	PaymentTypeStandard = "standard_verification"
	PaymentTypePriority = "priority_verification"
	PaymentTypeRenewal  = "renewal_verification"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusCancelled = "cancelled"
)

// PaymentValidityWindow is how long a completed payment can be used
// before it must be consumed by a verification upload.
const PaymentValidityWindow = 30 * 24 * time.Hour

// Payment is a verification fee payment. Amounts are integer minor
// units (cents), following the provider's wire convention.
type Payment struct {
	ID             uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	VerificationID *uuid.UUID `json:"verification_id" gorm:"type:uuid"`

	ProviderIntentID   *string `json:"provider_intent_id" gorm:"uniqueIndex;size:255"`
	ProviderCustomerID *string `json:"-" gorm:"size:255"`
	ProviderChargeID   *string `json:"-" gorm:"size:255"`

	PaymentType string `json:"payment_type" gorm:"size:30" validate:"required,oneof=standard_verification priority_verification renewal_verification"`
	Status      string `json:"status" gorm:"size:20;default:pending"`

	Amount      int64  `json:"amount" validate:"min=0"`
	Currency    string `json:"currency" gorm:"size:10;default:eur"`
	Description string `json:"description" gorm:"size:255"`

	FailureReason *string    `json:"failure_reason" gorm:"type:text"`
	CompletedAt   *time.Time `json:"completed_at"`
	RefundedAt    *time.Time `json:"refunded_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsValidForVerification reports whether the payment can still unlock a
// document upload: completed, not yet consumed, and recent enough.
func (p *Payment) IsValidForVerification() bool {
	if p.Status != PaymentStatusCompleted {
		return false
	}
	if p.VerificationID != nil {
		return false
	}
	return time.Since(p.CreatedAt) <= PaymentValidityWindow
}
