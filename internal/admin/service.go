package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Admin errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrCannotBan    = errors.New("administrators cannot be banned")
)

// Stats is the platform overview shown on the admin dashboard
type Stats struct {
	TotalUsers           int64 `json:"total_users"`
	ActiveUsers          int64 `json:"active_users"`
	VerifiedUsers        int64 `json:"verified_users"`
	TotalMatches         int64 `json:"total_matches"`
	ActiveMatches        int64 `json:"active_matches"`
	PendingVerifications int64 `json:"pending_verifications"`
	PendingReports       int64 `json:"pending_reports"`
	CompletedPayments    int64 `json:"completed_payments"`
	RevenueMinorUnits    int64 `json:"revenue_minor_units"`
}

// UserFilter narrows an admin user search
type UserFilter struct {
	Query              string
	Status             string
	VerificationStatus string
	Page               int
	PerPage            int
}

// AdminService provides platform management operations
type AdminService interface {
	Start() error
	Stop() error
	Stats(ctx context.Context) (*Stats, error)
	SearchUsers(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	BanUser(ctx context.Context, id uuid.UUID, ban bool) (*models.User, error)
}

// Service implements AdminService on GORM
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new admin service
func NewService(logger *zap.Logger, db *gorm.DB) (AdminService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &Service{logger: logger, db: db}, nil
}

// Start starts the admin service
func (s *Service) Start() error {
	s.logger.Info("Admin service started")
	return nil
}

// Stop stops the admin service
func (s *Service) Stop() error {
	s.logger.Info("Admin service stopped")
	return nil
}

// Stats aggregates platform counters
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	db := s.db.WithContext(ctx)

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, db.Model(&models.User{})},
		{&stats.ActiveUsers, db.Model(&models.User{}).Where("status = ?", models.UserStatusActive)},
		{&stats.VerifiedUsers, db.Model(&models.User{}).Where("verification_status = ?", models.VerificationStatusVerified)},
		{&stats.TotalMatches, db.Model(&models.Match{})},
		{&stats.ActiveMatches, db.Model(&models.Match{}).Where("status = ?", models.MatchStatusActive)},
		{&stats.PendingVerifications, db.Model(&models.Verification{}).
			Where("status IN ?", []string{models.DocStatusPending, models.DocStatusProcessing, models.DocStatusManualReview})},
		{&stats.PendingReports, db.Model(&models.Report{}).Where("status = ?", models.ReportStatusPending)},
		{&stats.CompletedPayments, db.Model(&models.Payment{}).Where("status = ?", models.PaymentStatusCompleted)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to aggregate stats: %w", err)
		}
	}

	var revenue struct{ Total int64 }
	if err := db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", models.PaymentStatusCompleted).
		Scan(&revenue).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	stats.RevenueMinorUnits = revenue.Total

	return stats, nil
}

// SearchUsers lists users matching an email fragment and filters
func (s *Service) SearchUsers(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where("email LIKE ? OR phone LIKE ?", like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VerificationStatus != "" {
		query = query.Where("verification_status = ?", filter.VerificationStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PerPage).
		Limit(filter.PerPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetUser returns one user by ID
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// BanUser suspends or reinstates an account. Admin accounts are
// protected from suspension.
func (s *Service) BanUser(ctx context.Context, id uuid.UUID, ban bool) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if ban && user.IsAdmin {
		return nil, ErrCannotBan
	}

	status := models.UserStatusActive
	if ban {
		status = models.UserStatusSuspended
	}
	user.Status = status
	if err := s.db.WithContext(ctx).Model(user).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	s.logger.Info("User status changed by admin",
		zap.String("user_id", id.String()),
		zap.String("status", status))
	return user, nil
}
