package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Report errors
var (
	ErrSelfReport      = errors.New("cannot report yourself")
	ErrTargetNotFound  = errors.New("reported user not found")
	ErrDuplicateReport = errors.New("a pending report for this user already exists")
	ErrReportNotFound  = errors.New("report not found")
	ErrAlreadyReviewed = errors.New("report has already been reviewed")
	ErrInvalidOutcome  = errors.New("invalid review outcome")
)

// CreateRequest is the body of a new report
type CreateRequest struct {
	ReportedUserID uuid.UUID `json:"reported_user_id" binding:"required"`
	Reason         string    `json:"reason" binding:"required,oneof=inappropriate_content harassment fake_profile scam other"`
	Description    *string   `json:"description"`
}

// ReviewRequest is an admin's decision on a report
type ReviewRequest struct {
	Status      string  `json:"status" binding:"required,oneof=reviewed dismissed action_taken"`
	AdminNotes  *string `json:"admin_notes"`
	SuspendUser bool    `json:"suspend_user"`
}

// ReportService manages user complaints
type ReportService interface {
	Start() error
	Stop() error
	Create(ctx context.Context, reporterID uuid.UUID, req *CreateRequest) (*models.Report, error)
	ListForAdmin(ctx context.Context, status string, page, perPage int) ([]models.ReportWithEmails, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Report, error)
	Review(ctx context.Context, id, adminID uuid.UUID, req *ReviewRequest) (*models.Report, error)
}

// Service implements ReportService on GORM
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	sanitizer *bluemonday.Policy
}

// NewService creates a new report service
func NewService(logger *zap.Logger, db *gorm.DB) (ReportService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &Service{logger: logger, db: db, sanitizer: bluemonday.StrictPolicy()}, nil
}

// Start starts the report service
func (s *Service) Start() error {
	s.logger.Info("Report service started")
	return nil
}

// Stop stops the report service
func (s *Service) Stop() error {
	s.logger.Info("Report service stopped")
	return nil
}

// Create files a complaint against another user. One pending report
// per reporter and target at a time.
func (s *Service) Create(ctx context.Context, reporterID uuid.UUID, req *CreateRequest) (*models.Report, error) {
	if req.ReportedUserID == reporterID {
		return nil, ErrSelfReport
	}

	var target models.User
	if err := s.db.WithContext(ctx).First(&target, "id = ?", req.ReportedUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to load reported user: %w", err)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_user_id = ? AND reported_user_id = ? AND status = ?",
			reporterID, req.ReportedUserID, models.ReportStatusPending).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing reports: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateReport
	}

	report := &models.Report{
		ID:             uuid.New(),
		ReportedUserID: req.ReportedUserID,
		ReporterUserID: reporterID,
		Reason:         req.Reason,
		Status:         models.ReportStatusPending,
	}
	if req.Description != nil {
		desc := strings.TrimSpace(s.sanitizer.Sanitize(*req.Description))
		if desc != "" {
			report.Description = &desc
		}
	}

	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	s.logger.Info("Report filed",
		zap.String("reporter_id", reporterID.String()),
		zap.String("reported_id", req.ReportedUserID.String()),
		zap.String("reason", req.Reason))
	return report, nil
}

// ListForAdmin returns reports with both parties' emails, pending
// first and newest within each status
func (s *Service) ListForAdmin(ctx context.Context, status string, page, perPage int) ([]models.ReportWithEmails, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Report{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	var reportList []models.Report
	if err := query.
		Order("CASE WHEN status = 'pending' THEN 0 ELSE 1 END, created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&reportList).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	rows := make([]models.ReportWithEmails, 0, len(reportList))
	for _, report := range reportList {
		row := models.ReportWithEmails{Report: report}
		var reporter, reported models.User
		if err := s.db.WithContext(ctx).Select("email").First(&reporter, "id = ?", report.ReporterUserID).Error; err == nil {
			row.ReporterEmail = reporter.Email
		}
		if err := s.db.WithContext(ctx).Select("email").First(&reported, "id = ?", report.ReportedUserID).Error; err == nil {
			row.ReportedEmail = reported.Email
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

// Get returns one report
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return &report, nil
}

// Review records an admin decision and optionally suspends the
// reported user. Admins cannot be suspended this way.
func (s *Service) Review(ctx context.Context, id, adminID uuid.UUID, req *ReviewRequest) (*models.Report, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusPending {
		return nil, ErrAlreadyReviewed
	}

	now := time.Now()
	report.Status = req.Status
	report.ReviewedBy = &adminID
	report.AdminNotes = req.AdminNotes
	report.ReviewedAt = &now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(report).Error; err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		if req.SuspendUser {
			if err := tx.Model(&models.User{}).
				Where("id = ? AND is_admin = ?", report.ReportedUserID, false).
				Update("status", models.UserStatusSuspended).Error; err != nil {
				return fmt.Errorf("failed to suspend user: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Report reviewed",
		zap.String("report_id", report.ID.String()),
		zap.String("status", req.Status),
		zap.Bool("suspended", req.SuspendUser))
	return report, nil
}
