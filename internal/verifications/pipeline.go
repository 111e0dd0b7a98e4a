package verifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/internal/verifications/mrz"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

const (
	// Confidence assigned when a passport cannot be face-checked
	// because the user has no processed selfie.
	noSelfieConfidence = 0.5
	// Confidence assigned to document types that have no automated
	// check beyond OCR extraction.
	ocrOnlyConfidence = 0.3
	// Penalty applied when the MRZ name is not corroborated by the
	// rest of the OCR text.
	nameMismatchPenalty = 0.1
)

// process runs the automatic verification pipeline on one document.
// The outcome is one of approved, rejected, pending (needs a human) or
// manual_review (cannot be automated at all).
func (s *Service) process(ctx context.Context, id uuid.UUID) error {
	verification, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch verification.Status {
	case models.DocStatusPending, models.DocStatusProcessing, models.DocStatusManualReview:
	default:
		return nil
	}

	verification.Status = models.DocStatusProcessing
	if err := s.db.WithContext(ctx).Save(verification).Error; err != nil {
		return fmt.Errorf("failed to mark verification processing: %w", err)
	}

	if s.ocr == nil || verification.MimeType == "application/pdf" {
		// Scanned PDFs and missing OCR both need human eyes.
		return s.setStatus(ctx, verification, models.DocStatusManualReview)
	}

	document, err := s.storage.Read(verification.FilePath)
	if err != nil {
		return s.setStatus(ctx, verification, models.DocStatusManualReview)
	}

	text, err := s.ocr.ExtractText(ctx, document, verification.MimeType)
	if err != nil {
		s.logger.Warn("OCR extraction failed",
			zap.String("verification_id", verification.ID.String()),
			zap.Error(err))
		return s.setStatus(ctx, verification, models.DocStatusManualReview)
	}

	if verification.DocumentType == models.DocumentTypePassport {
		return s.processPassport(ctx, verification, document, text)
	}

	verification.ExtractedData = models.JSONMap{
		"raw_ocr_text": text,
		"confidence":   ocrOnlyConfidence,
	}
	return s.setStatus(ctx, verification, models.DocStatusPending)
}

func (s *Service) processPassport(ctx context.Context, verification *models.Verification, document []byte, text string) error {
	parsed, err := mrz.Parse(text)
	if err != nil {
		// Keep the raw text so an admin can read the document.
		verification.ExtractedData = models.JSONMap{"raw_ocr_text": text}
		return s.setStatus(ctx, verification, models.DocStatusPending)
	}

	extracted := models.JSONMap{
		"document_number": parsed.DocumentNumber,
		"surname":         parsed.Surname,
		"given_names":     parsed.GivenNames,
		"nationality":     parsed.Nationality,
		"issuing_country": parsed.IssuingCountry,
		"sex":             parsed.Sex,
	}
	if parsed.BirthDate != nil {
		extracted["birth_date"] = parsed.BirthDate.Format("2006-01-02")
	}
	if parsed.ExpiryDate != nil {
		extracted["expiry_date"] = parsed.ExpiryDate.Format("2006-01-02")
		verification.DocumentExpiryDate = parsed.ExpiryDate
	}
	verification.ExtractedData = extracted

	selfie, err := s.processedSelfie(ctx, verification.UserID)
	if err != nil {
		return err
	}
	if selfie == nil || s.faces == nil {
		extracted["confidence"] = noSelfieConfidence
		verification.ExtractedData = extracted
		return s.setStatus(ctx, verification, models.DocStatusPending)
	}

	score, err := s.faces.Compare(ctx, document, selfie.FaceEmbedding)
	if err != nil {
		s.logger.Warn("Face comparison failed",
			zap.String("verification_id", verification.ID.String()),
			zap.Error(err))
		return s.setStatus(ctx, verification, models.DocStatusManualReview)
	}

	confidence := score
	if !nameCorroborated(text, parsed.Surname) {
		confidence -= nameMismatchPenalty
	}
	extracted["face_match_score"] = score
	extracted["confidence"] = confidence
	verification.ExtractedData = extracted

	switch {
	case confidence >= s.settings.AutoApproveThreshold:
		return s.approve(ctx, verification, models.VerificationMethodAutomated, nil)
	case confidence <= s.settings.AutoRejectThreshold:
		return s.reject(ctx, verification, "Face match score too low", models.VerificationMethodAutomated, nil)
	default:
		return s.setStatus(ctx, verification, models.DocStatusPending)
	}
}

// nameCorroborated fuzzily looks for the MRZ surname in the visual
// zone text. OCR noise makes an exact match unreliable, so a small
// edit distance counts as a hit.
func nameCorroborated(text, surname string) bool {
	surname = strings.ToUpper(surname)
	if surname == "" {
		return true
	}
	maxDistance := 1
	if len(surname) > 6 {
		maxDistance = 2
	}
	for _, token := range strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return r != '<' && (r < 'A' || r > 'Z')
	}) {
		for _, part := range strings.Split(token, "<") {
			if part == "" {
				continue
			}
			if levenshtein.ComputeDistance(part, surname) <= maxDistance {
				return true
			}
		}
	}
	return false
}

func (s *Service) processedSelfie(ctx context.Context, userID uuid.UUID) (*models.Selfie, error) {
	var selfie models.Selfie
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SelfieStatusProcessed).
		First(&selfie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load selfie: %w", err)
	}
	return &selfie, nil
}

func (s *Service) setStatus(ctx context.Context, verification *models.Verification, status string) error {
	verification.Status = status
	if err := s.db.WithContext(ctx).Save(verification).Error; err != nil {
		return fmt.Errorf("failed to save verification: %w", err)
	}
	return nil
}
