package verifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/internal/events"
	"github.com/nikohapp/nikoh-api/pkg/metrics"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Verification errors
var (
	ErrVerificationNotFound = errors.New("verification not found")
	ErrNotOwner             = errors.New("verification belongs to another user")
	ErrPaymentRequired      = errors.New("a valid payment is required before uploading")
	ErrInvalidDocumentType  = errors.New("invalid document type")
	ErrNotCancellable       = errors.New("verification can no longer be cancelled")
	ErrNotReviewable        = errors.New("verification is not awaiting review")
	ErrSelfieNotFound       = errors.New("selfie not found")
)

var validDocumentTypes = map[string]bool{
	models.DocumentTypePassport:           true,
	models.DocumentTypeResidencePermit:    true,
	models.DocumentTypeDivorceCertificate: true,
	models.DocumentTypeDiploma:            true,
	models.DocumentTypeEmploymentProof:    true,
}

// Settings carries the auto-verification tuning knobs
type Settings struct {
	AutoEnabled          bool
	AutoApproveThreshold float64
	AutoRejectThreshold  float64
	ValidityDays         int
}

// Upload carries one incoming document or selfie file
type Upload struct {
	Data     []byte
	MimeType string
	Filename string
}

// StatusSummary is the aggregate verification state shown to a user
type StatusSummary struct {
	OverallStatus   string   `json:"overall_status"`
	VerifiedDocs    []string `json:"verified_documents"`
	PendingDocs     []string `json:"pending_documents"`
	MissingDocs     []string `json:"missing_documents"`
	HasValidPayment bool     `json:"has_valid_payment"`
}

// SelfieStatus is the selfie processing state shown to a user
type SelfieStatus struct {
	HasSelfie         bool    `json:"has_selfie"`
	Status            string  `json:"status,omitempty"`
	ErrorMessage      *string `json:"error_message,omitempty"`
	CanVerifyPassport bool    `json:"can_verify_passport"`
}

// VerificationService manages document verification and selfies
type VerificationService interface {
	Start() error
	Stop() error

	Submit(ctx context.Context, userID uuid.UUID, documentType, documentCountry string, upload Upload) (*models.Verification, error)
	List(ctx context.Context, userID uuid.UUID, status string) ([]models.Verification, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Verification, error)
	Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Verification, error)
	Summary(ctx context.Context, userID uuid.UUID) (*StatusSummary, error)

	UploadSelfie(ctx context.Context, userID uuid.UUID, upload Upload) (*models.Selfie, error)
	GetSelfie(ctx context.Context, userID uuid.UUID) (*models.Selfie, error)
	GetSelfieStatus(ctx context.Context, userID uuid.UUID) (*SelfieStatus, error)
	DeleteSelfie(ctx context.Context, userID uuid.UUID) error

	PendingReview(ctx context.Context, page, perPage int) ([]models.Verification, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Verification, error)
	Approve(ctx context.Context, id, adminID uuid.UUID) (*models.Verification, error)
	Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.Verification, error)
	RunOCR(ctx context.Context, id uuid.UUID) (*models.Verification, error)
}

// Service implements VerificationService
type Service struct {
	logger   *zap.Logger
	db       *gorm.DB
	storage  *Storage
	ocr      OCRProvider
	faces    FaceEngine
	bus      events.Bus
	settings Settings
}

// NewService creates a new verification service. ocr and faces may be
// nil, in which case documents queue for manual review.
func NewService(logger *zap.Logger, db *gorm.DB, storage *Storage, ocr OCRProvider, faces FaceEngine, bus events.Bus, settings Settings) (VerificationService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if storage == nil {
		return nil, fmt.Errorf("document storage is required")
	}
	if bus == nil {
		bus = events.NewNopBus()
	}
	return &Service{
		logger:   logger,
		db:       db,
		storage:  storage,
		ocr:      ocr,
		faces:    faces,
		bus:      bus,
		settings: settings,
	}, nil
}

// Start starts the verification service
func (s *Service) Start() error {
	s.logger.Info("Verification service started")
	return nil
}

// Stop stops the verification service
func (s *Service) Stop() error {
	s.logger.Info("Verification service stopped")
	return nil
}

// Submit stores an uploaded document and queues it for verification.
// The upload consumes the user's oldest valid payment; without one the
// request is refused.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, documentType, documentCountry string, upload Upload) (*models.Verification, error) {
	if !validDocumentTypes[documentType] {
		return nil, ErrInvalidDocumentType
	}

	payment, err := s.validPayment(ctx, userID)
	if err != nil {
		return nil, err
	}

	path, err := s.storage.Save(upload.Data, upload.MimeType, false)
	if err != nil {
		return nil, err
	}

	verification := &models.Verification{
		ID:               uuid.New(),
		UserID:           userID,
		DocumentType:     documentType,
		DocumentCountry:  documentCountry,
		Status:           models.DocStatusPending,
		FilePath:         path,
		OriginalFilename: upload.Filename,
		MimeType:         upload.MimeType,
		FileSize:         int64(len(upload.Data)),
		SubmittedAt:      time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(verification).Error; err != nil {
			return fmt.Errorf("failed to store verification: %w", err)
		}
		if err := tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Update("verification_id", verification.ID).Error; err != nil {
			return fmt.Errorf("failed to link payment: %w", err)
		}
		return nil
	})
	if err != nil {
		s.storage.Remove(path)
		return nil, err
	}

	s.logger.Info("Verification submitted",
		zap.String("user_id", userID.String()),
		zap.String("verification_id", verification.ID.String()),
		zap.String("document_type", documentType))

	if s.settings.AutoEnabled {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := s.process(ctx, verification.ID); err != nil {
				s.logger.Error("Automatic verification failed",
					zap.String("verification_id", verification.ID.String()),
					zap.Error(err))
			}
		}()
	}

	return verification, nil
}

func (s *Service) validPayment(ctx context.Context, userID uuid.UUID) (*models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND verification_id IS NULL", userID, models.PaymentStatusCompleted).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up payments: %w", err)
	}
	for i := range payments {
		if payments[i].IsValidForVerification() {
			return &payments[i], nil
		}
	}
	return nil, ErrPaymentRequired
}

// List returns the user's verifications, optionally filtered by status
func (s *Service) List(ctx context.Context, userID uuid.UUID, status string) ([]models.Verification, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var list []models.Verification
	if err := query.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return list, nil
}

// Get returns one verification for its owner
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Verification, error) {
	verification, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if verification.UserID != userID {
		return nil, ErrNotOwner
	}
	return verification, nil
}

// GetByID returns one verification without an ownership check, for
// the admin console
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Verification, error) {
	return s.load(ctx, id)
}

// Cancel withdraws a verification that has not been decided yet
func (s *Service) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Verification, error) {
	verification, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if verification.Status != models.DocStatusPending && verification.Status != models.DocStatusProcessing {
		return nil, ErrNotCancellable
	}
	verification.Status = models.DocStatusCancelled
	if err := s.db.WithContext(ctx).Save(verification).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel verification: %w", err)
	}
	return verification, nil
}

// Summary aggregates the user's verification state across documents
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*StatusSummary, error) {
	list, err := s.List(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	summary := &StatusSummary{
		VerifiedDocs: []string{},
		PendingDocs:  []string{},
		MissingDocs:  []string{},
	}
	seen := make(map[string]bool)
	for _, v := range list {
		switch v.Status {
		case models.DocStatusApproved:
			if !seen[v.DocumentType] {
				summary.VerifiedDocs = append(summary.VerifiedDocs, v.DocumentType)
				seen[v.DocumentType] = true
			}
		case models.DocStatusPending, models.DocStatusProcessing, models.DocStatusManualReview:
			if !seen[v.DocumentType] {
				summary.PendingDocs = append(summary.PendingDocs, v.DocumentType)
				seen[v.DocumentType] = true
			}
		}
	}
	for docType := range validDocumentTypes {
		if !seen[docType] {
			summary.MissingDocs = append(summary.MissingDocs, docType)
		}
	}

	switch {
	case len(summary.VerifiedDocs) > 0 && contains(summary.VerifiedDocs, models.DocumentTypePassport):
		summary.OverallStatus = models.VerificationStatusVerified
	case len(summary.VerifiedDocs) > 0 || len(summary.PendingDocs) > 0:
		summary.OverallStatus = models.VerificationStatusPartial
	default:
		summary.OverallStatus = models.VerificationStatusUnverified
	}

	if _, err := s.validPayment(ctx, userID); err == nil {
		summary.HasValidPayment = true
	} else if !errors.Is(err, ErrPaymentRequired) {
		return nil, err
	}

	return summary, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// PendingReview lists verifications awaiting an admin decision
func (s *Service) PendingReview(ctx context.Context, page, perPage int) ([]models.Verification, int64, error) {
	statuses := []string{models.DocStatusPending, models.DocStatusProcessing, models.DocStatusManualReview}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Verification{}).
		Where("status IN ?", statuses).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending verifications: %w", err)
	}

	var list []models.Verification
	if err := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("submitted_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list pending verifications: %w", err)
	}
	return list, total, nil
}

// Approve marks a verification approved by an admin and applies its
// extracted data to the owner's profile
func (s *Service) Approve(ctx context.Context, id, adminID uuid.UUID) (*models.Verification, error) {
	verification, err := s.reviewable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.approve(ctx, verification, models.VerificationMethodManual, &adminID); err != nil {
		return nil, err
	}
	return verification, nil
}

// Reject marks a verification rejected by an admin
func (s *Service) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.Verification, error) {
	verification, err := s.reviewable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.reject(ctx, verification, reason, models.VerificationMethodManual, &adminID); err != nil {
		return nil, err
	}
	return verification, nil
}

// RunOCR re-runs the automatic pipeline on a stalled verification
func (s *Service) RunOCR(ctx context.Context, id uuid.UUID) (*models.Verification, error) {
	verification, err := s.reviewable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.process(ctx, verification.ID); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Verification, error) {
	var verification models.Verification
	if err := s.db.WithContext(ctx).First(&verification, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to load verification: %w", err)
	}
	return &verification, nil
}

func (s *Service) reviewable(ctx context.Context, id uuid.UUID) (*models.Verification, error) {
	verification, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch verification.Status {
	case models.DocStatusPending, models.DocStatusProcessing, models.DocStatusManualReview:
		return verification, nil
	}
	return nil, ErrNotReviewable
}

// approve finalizes a verification, copies extracted data to the
// profile and marks the user verified when the document warrants it
func (s *Service) approve(ctx context.Context, verification *models.Verification, method string, reviewer *uuid.UUID) error {
	now := time.Now()
	verification.Status = models.DocStatusApproved
	verification.VerificationMethod = &method
	verification.VerifiedBy = reviewer
	verification.VerifiedAt = &now
	verification.RejectionReason = nil

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(verification).Error; err != nil {
			return fmt.Errorf("failed to save verification: %w", err)
		}
		if err := s.applyToProfile(tx, verification); err != nil {
			return err
		}
		if verification.DocumentType == models.DocumentTypePassport {
			expiry := now.AddDate(0, 0, s.settings.ValidityDays)
			if err := tx.Model(&models.User{}).
				Where("id = ?", verification.UserID).
				Updates(map[string]interface{}{
					"verification_status":     models.VerificationStatusVerified,
					"verification_expires_at": expiry,
				}).Error; err != nil {
				return fmt.Errorf("failed to mark user verified: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.VerificationsProcessed.WithLabelValues("approved").Inc()
	if err := s.bus.Publish(ctx, events.VerificationApproved, map[string]interface{}{
		"verification_id": verification.ID,
		"user_id":         verification.UserID,
		"document_type":   verification.DocumentType,
	}); err != nil {
		s.logger.Warn("Failed to publish verification event", zap.Error(err))
	}
	s.logger.Info("Verification approved",
		zap.String("verification_id", verification.ID.String()),
		zap.String("method", method))
	return nil
}

func (s *Service) reject(ctx context.Context, verification *models.Verification, reason, method string, reviewer *uuid.UUID) error {
	now := time.Now()
	verification.Status = models.DocStatusRejected
	verification.RejectionReason = &reason
	verification.VerificationMethod = &method
	verification.VerifiedBy = reviewer
	verification.VerifiedAt = &now

	if err := s.db.WithContext(ctx).Save(verification).Error; err != nil {
		return fmt.Errorf("failed to save verification: %w", err)
	}
	metrics.VerificationsProcessed.WithLabelValues("rejected").Inc()
	s.logger.Info("Verification rejected",
		zap.String("verification_id", verification.ID.String()),
		zap.String("reason", reason))
	return nil
}

// applyToProfile copies document data onto the owner's verified
// profile fields. The profile may not exist yet; that is fine, the
// user sees the data once they create one and re-verify.
func (s *Service) applyToProfile(tx *gorm.DB, verification *models.Verification) error {
	updates := make(map[string]interface{})

	str := func(key string) *string {
		if verification.ExtractedData == nil {
			return nil
		}
		if v, ok := verification.ExtractedData[key].(string); ok && v != "" {
			return &v
		}
		return nil
	}

	switch verification.DocumentType {
	case models.DocumentTypePassport:
		if v := str("given_names"); v != nil {
			updates["verified_first_name"] = *v
		}
		if v := str("surname"); v != nil && len(*v) > 0 {
			updates["verified_last_initial"] = string((*v)[0])
		}
		if v := str("birth_date"); v != nil {
			if t, err := time.Parse("2006-01-02", *v); err == nil {
				updates["verified_birth_date"] = t
			}
		}
		if v := str("birthplace_city"); v != nil {
			updates["verified_birthplace_city"] = *v
		}
		if v := str("nationality"); v != nil {
			updates["verified_nationality"] = *v
		}
	case models.DocumentTypeResidencePermit:
		if verification.DocumentCountry != "" {
			updates["verified_residence_country"] = verification.DocumentCountry
		}
		if v := str("residence_status"); v != nil {
			updates["verified_residence_status"] = *v
		} else {
			updates["verified_residence_status"] = "permit_holder"
		}
	case models.DocumentTypeDivorceCertificate:
		updates["verified_marital_status"] = "divorced_once"
	case models.DocumentTypeDiploma:
		if v := str("education_level"); v != nil {
			updates["verified_education_level"] = *v
		} else {
			updates["verified_education_level"] = "higher"
		}
	}

	if len(updates) == 0 {
		return nil
	}
	if err := tx.Model(&models.Profile{}).
		Where("user_id = ?", verification.UserID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}
