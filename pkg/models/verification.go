package models

import (
	"time"

	"github.com/google/uuid"
)

// Document types accepted for verification
const (
	DocumentTypePassport           = "passport"
	DocumentTypeResidencePermit    = "residence_permit"
	DocumentTypeDivorceCertificate = "divorce_certificate"
	DocumentTypeDiploma            = "diploma"
	DocumentTypeEmploymentProof    = "employment_proof"
)

// Verification record statuses
const (
	DocStatusPending      = "pending"
	DocStatusProcessing   = "processing"
	DocStatusApproved     = "approved"
	DocStatusRejected     = "rejected"
	DocStatusExpired      = "expired"
	DocStatusCancelled    = "cancelled"
	DocStatusManualReview = "manual_review"
)

// Verification methods
const (
	VerificationMethodAutomated = "automated"
	VerificationMethodManual    = "manual"
)

// Verification is a document verification request
type Verification struct {
	ID     uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;index" validate:"required,uuid"`

	DocumentType    string `json:"document_type" gorm:"size:30" validate:"required,oneof=passport residence_permit divorce_certificate diploma employment_proof"`
	DocumentCountry string `json:"document_country" gorm:"size:100"`
	Status          string `json:"status" gorm:"size:20;default:pending"`

	RejectionReason    *string    `json:"rejection_reason" gorm:"type:text"`
	ExtractedData      JSONMap    `json:"extracted_data" gorm:"type:text"`
	DocumentExpiryDate *time.Time `json:"document_expiry_date"`

	FilePath         string `json:"-" gorm:"size:500"`
	OriginalFilename string `json:"original_filename" gorm:"size:255"`
	MimeType         string `json:"mime_type" gorm:"size:100"`
	FileSize         int64  `json:"file_size"`

	VerificationMethod *string    `json:"verification_method" gorm:"size:20"`
	VerifiedBy         *uuid.UUID `json:"verified_by" gorm:"type:uuid"`

	SubmittedAt time.Time  `json:"submitted_at"`
	VerifiedAt  *time.Time `json:"verified_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Selfie statuses
const (
	SelfieStatusPending   = "pending"
	SelfieStatusProcessed = "processed"
	SelfieStatusFailed    = "failed"
)

// Selfie is the reference photo used for face comparison, one per user
type Selfie struct {
	ID     uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex" validate:"required,uuid"`

	FilePath         string `json:"-" gorm:"size:500"`
	OriginalFilename string `json:"original_filename" gorm:"size:255"`
	MimeType         string `json:"mime_type" gorm:"size:100"`
	FileSize         int64  `json:"file_size"`

	FaceEmbedding []byte  `json:"-" gorm:"type:blob"`
	Status        string  `json:"status" gorm:"size:20;default:pending"`
	ErrorMessage  *string `json:"error_message" gorm:"type:text"`

	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
