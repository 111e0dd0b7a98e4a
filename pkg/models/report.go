package models

import (
	"time"

	"github.com/google/uuid"
)

// Report reasons
const (
	ReportReasonInappropriate = "inappropriate_content"
	ReportReasonHarassment    = "harassment"
	ReportReasonFakeProfile   = "fake_profile"
	ReportReasonScam          = "scam"
	ReportReasonOther         = "other"
)

// Report statuses
const (
	ReportStatusPending     = "pending"
	ReportStatusReviewed    = "reviewed"
	ReportStatusDismissed   = "dismissed"
	ReportStatusActionTaken = "action_taken"
)

// Report is a user-submitted complaint about another user
type Report struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	ReportedUserID uuid.UUID `json:"reported_user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	ReporterUserID uuid.UUID `json:"reporter_user_id" gorm:"type:uuid;index" validate:"required,uuid"`

	Reason      string  `json:"reason" gorm:"size:50" validate:"required,oneof=inappropriate_content harassment fake_profile scam other"`
	Description *string `json:"description" gorm:"type:text"`
	Status      string  `json:"status" gorm:"size:20;default:pending"`

	ReviewedBy *uuid.UUID `json:"reviewed_by" gorm:"type:uuid"`
	AdminNotes *string    `json:"admin_notes" gorm:"type:text"`
	ReviewedAt *time.Time `json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportWithEmails is the admin list row including both parties' emails
type ReportWithEmails struct {
	Report        Report `json:"report"`
	ReporterEmail string `json:"reporter_email"`
	ReportedEmail string `json:"reported_email"`
}
