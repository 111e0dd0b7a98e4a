package verifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// UploadSelfie stores or replaces the user's reference selfie and
// computes its face embedding when a face engine is configured.
func (s *Service) UploadSelfie(ctx context.Context, userID uuid.UUID, upload Upload) (*models.Selfie, error) {
	path, err := s.storage.Save(upload.Data, upload.MimeType, true)
	if err != nil {
		return nil, err
	}

	var selfie models.Selfie
	err = s.db.WithContext(ctx).First(&selfie, "user_id = ?", userID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		selfie = models.Selfie{ID: uuid.New(), UserID: userID}
	case err != nil:
		s.storage.Remove(path)
		return nil, fmt.Errorf("failed to load selfie: %w", err)
	default:
		// Re-upload replaces the previous photo.
		s.storage.Remove(selfie.FilePath)
	}

	selfie.FilePath = path
	selfie.OriginalFilename = upload.Filename
	selfie.MimeType = upload.MimeType
	selfie.FileSize = int64(len(upload.Data))
	selfie.Status = models.SelfieStatusPending
	selfie.ErrorMessage = nil
	selfie.FaceEmbedding = nil
	selfie.ProcessedAt = nil

	if s.faces != nil {
		embedding, embedErr := s.faces.Embed(ctx, upload.Data)
		now := time.Now()
		if embedErr != nil {
			s.logger.Warn("Selfie embedding failed",
				zap.String("user_id", userID.String()),
				zap.Error(embedErr))
			msg := "Could not detect a face in the photo"
			selfie.Status = models.SelfieStatusFailed
			selfie.ErrorMessage = &msg
		} else {
			selfie.FaceEmbedding = embedding
			selfie.Status = models.SelfieStatusProcessed
			selfie.ProcessedAt = &now
		}
	}

	if err := s.db.WithContext(ctx).Save(&selfie).Error; err != nil {
		s.storage.Remove(path)
		return nil, fmt.Errorf("failed to save selfie: %w", err)
	}
	return &selfie, nil
}

// GetSelfie returns the user's selfie record
func (s *Service) GetSelfie(ctx context.Context, userID uuid.UUID) (*models.Selfie, error) {
	var selfie models.Selfie
	err := s.db.WithContext(ctx).First(&selfie, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSelfieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load selfie: %w", err)
	}
	return &selfie, nil
}

// GetSelfieStatus reports whether the user has a usable selfie
func (s *Service) GetSelfieStatus(ctx context.Context, userID uuid.UUID) (*SelfieStatus, error) {
	var selfie models.Selfie
	err := s.db.WithContext(ctx).First(&selfie, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &SelfieStatus{HasSelfie: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load selfie: %w", err)
	}
	return &SelfieStatus{
		HasSelfie:         true,
		Status:            selfie.Status,
		ErrorMessage:      selfie.ErrorMessage,
		CanVerifyPassport: selfie.Status == models.SelfieStatusProcessed,
	}, nil
}

// DeleteSelfie removes the user's selfie and its stored file
func (s *Service) DeleteSelfie(ctx context.Context, userID uuid.UUID) error {
	var selfie models.Selfie
	err := s.db.WithContext(ctx).First(&selfie, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSelfieNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load selfie: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&selfie).Error; err != nil {
		return fmt.Errorf("failed to delete selfie: %w", err)
	}
	if err := s.storage.Remove(selfie.FilePath); err != nil {
		s.logger.Warn("Failed to remove selfie file", zap.Error(err))
	}
	return nil
}
