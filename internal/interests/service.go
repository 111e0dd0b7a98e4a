package interests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/internal/events"
	"github.com/nikohapp/nikoh-api/pkg/metrics"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Service errors
var (
	ErrSelfInterest       = errors.New("cannot send interest to yourself")
	ErrTargetNotVisible   = errors.New("target profile not found or hidden")
	ErrDuplicateInterest  = errors.New("pending interest already exists")
	ErrAlreadyMatched     = errors.New("users are already matched")
	ErrInterestNotFound   = errors.New("interest not found")
	ErrNotRecipient       = errors.New("only the recipient can respond")
	ErrNotSender          = errors.New("only the sender can cancel")
	ErrInterestNotPending = errors.New("interest is not pending")
)

const sweepLockKey = "interests:expiry_sweep"

// InterestService defines interest operations
type InterestService interface {
	Start() error
	Stop() error
	Create(ctx context.Context, fromUserID, toUserID uuid.UUID, message *string) (*models.Interest, error)
	ListReceived(ctx context.Context, userID uuid.UUID, status string, page, perPage int) ([]models.InterestWithProfile, int64, error)
	ListSent(ctx context.Context, userID uuid.UUID, status string, page, perPage int) ([]models.InterestWithProfile, int64, error)
	Respond(ctx context.Context, interestID, userID uuid.UUID, accept bool) (*models.Interest, *models.Match, error)
	Cancel(ctx context.Context, interestID, userID uuid.UUID) error
	ExpireOldInterests(ctx context.Context) (int64, error)
}

// Service implements InterestService
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	redis     *redis.Client
	bus       events.Bus
	sanitizer *bluemonday.Policy
}

// NewService creates a new InterestService
func NewService(logger *zap.Logger, db *gorm.DB, rdb *redis.Client, bus events.Bus) (InterestService, error) {
	if bus == nil {
		bus = events.NewNopBus()
	}
	return &Service{
		logger:    logger,
		db:        db,
		redis:     rdb,
		bus:       bus,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// Start starts the interests service
func (s *Service) Start() error {
	s.logger.Info("Interests service started")
	return nil
}

// Stop stops the interests service
func (s *Service) Stop() error {
	s.logger.Info("Interests service stopped")
	return nil
}

// Create sends an interest from one user to another
func (s *Service) Create(ctx context.Context, fromUserID, toUserID uuid.UUID, message *string) (*models.Interest, error) {
	if fromUserID == toUserID {
		return nil, ErrSelfInterest
	}

	// Target must have a visible profile
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ? AND is_visible = ?", toUserID, true).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotVisible
		}
		return nil, fmt.Errorf("failed to check target profile: %w", err)
	}

	// No duplicate pending interest in either direction
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Interest{}).
		Where("status = ?", models.InterestStatusPending).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			fromUserID, toUserID, toUserID, fromUserID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing interests: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateInterest
	}

	// No active match between the pair
	a, b := models.OrderUserPair(fromUserID, toUserID)
	if err := s.db.WithContext(ctx).Model(&models.Match{}).
		Where("user_a_id = ? AND user_b_id = ? AND status = ?", a, b, models.MatchStatusActive).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing match: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadyMatched
	}

	if message != nil {
		sanitized := s.sanitizer.Sanitize(*message)
		message = &sanitized
	}

	interest := &models.Interest{
		ID:         uuid.New(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Message:    message,
		Status:     models.InterestStatusPending,
		ExpiresAt:  time.Now().Add(models.InterestTTL),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(interest).Error; err != nil {
		return nil, fmt.Errorf("failed to create interest: %w", err)
	}

	metrics.InterestsCreated.Inc()
	if err := s.bus.Publish(ctx, events.InterestCreated, map[string]interface{}{
		"interest_id":  interest.ID,
		"from_user_id": fromUserID,
		"to_user_id":   toUserID,
	}); err != nil {
		s.logger.Warn("Failed to publish interest event", zap.Error(err))
	}
	return interest, nil
}

// ListReceived lists interests sent to the user, newest first
func (s *Service) ListReceived(ctx context.Context, userID uuid.UUID, status string, page, perPage int) ([]models.InterestWithProfile, int64, error) {
	return s.list(ctx, "to_user_id", userID, status, page, perPage)
}

// ListSent lists interests sent by the user, newest first
func (s *Service) ListSent(ctx context.Context, userID uuid.UUID, status string, page, perPage int) ([]models.InterestWithProfile, int64, error) {
	return s.list(ctx, "from_user_id", userID, status, page, perPage)
}

func (s *Service) list(ctx context.Context, column string, userID uuid.UUID, status string, page, perPage int) ([]models.InterestWithProfile, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Interest{}).Where(column+" = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count interests: %w", err)
	}

	var interests []models.Interest
	if err := query.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&interests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list interests: %w", err)
	}

	result := make([]models.InterestWithProfile, 0, len(interests))
	for _, interest := range interests {
		otherID := interest.FromUserID
		if column == "from_user_id" {
			otherID = interest.ToUserID
		}
		entry := models.InterestWithProfile{Interest: interest}
		var profile models.Profile
		if err := s.db.WithContext(ctx).Where("user_id = ?", otherID).First(&profile).Error; err == nil {
			var owner models.User
			if err := s.db.WithContext(ctx).Where("id = ?", otherID).First(&owner).Error; err == nil {
				entry.Profile = models.NewProfileBrief(&profile, &owner)
			}
		}
		result = append(result, entry)
	}
	return result, total, nil
}

// Respond accepts or declines a pending interest. Accepting creates the
// match in the same transaction.
func (s *Service) Respond(ctx context.Context, interestID, userID uuid.UUID, accept bool) (*models.Interest, *models.Match, error) {
	var interest models.Interest
	if err := s.db.WithContext(ctx).Where("id = ?", interestID).First(&interest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInterestNotFound
		}
		return nil, nil, fmt.Errorf("failed to find interest: %w", err)
	}
	if interest.ToUserID != userID {
		return nil, nil, ErrNotRecipient
	}
	if interest.Status != models.InterestStatusPending {
		return nil, nil, ErrInterestNotPending
	}

	now := time.Now()
	var match *models.Match

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if accept {
			interest.Status = models.InterestStatusAccepted
		} else {
			interest.Status = models.InterestStatusDeclined
		}
		interest.RespondedAt = &now
		interest.UpdatedAt = now
		if err := tx.Save(&interest).Error; err != nil {
			return fmt.Errorf("failed to update interest: %w", err)
		}

		if accept {
			a, b := models.OrderUserPair(interest.FromUserID, interest.ToUserID)
			match = &models.Match{
				ID:        uuid.New(),
				UserAID:   a,
				UserBID:   b,
				Status:    models.MatchStatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(match).Error; err != nil {
				return fmt.Errorf("failed to create match: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if match != nil {
		metrics.MatchesCreated.Inc()
		if err := s.bus.Publish(ctx, events.MatchCreated, map[string]interface{}{
			"match_id": match.ID,
			"user_a":   match.UserAID,
			"user_b":   match.UserBID,
		}); err != nil {
			s.logger.Warn("Failed to publish match event", zap.Error(err))
		}
	}

	return &interest, match, nil
}

// Cancel withdraws a pending interest. Only the sender can cancel.
func (s *Service) Cancel(ctx context.Context, interestID, userID uuid.UUID) error {
	var interest models.Interest
	if err := s.db.WithContext(ctx).Where("id = ?", interestID).First(&interest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInterestNotFound
		}
		return fmt.Errorf("failed to find interest: %w", err)
	}
	if interest.FromUserID != userID {
		return ErrNotSender
	}
	if interest.Status != models.InterestStatusPending {
		return ErrInterestNotPending
	}

	now := time.Now()
	interest.Status = models.InterestStatusCancelled
	interest.RespondedAt = &now
	interest.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(&interest).Error; err != nil {
		return fmt.Errorf("failed to cancel interest: %w", err)
	}
	return nil
}

// ExpireOldInterests flips pending interests past their deadline to
// expired. The sweep is guarded by a short Redis lock so only one
// instance runs it per interval.
func (s *Service) ExpireOldInterests(ctx context.Context) (int64, error) {
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, sweepLockKey, 1, 10*time.Minute).Result()
		if err != nil {
			s.logger.Warn("Sweep lock unavailable, proceeding without it", zap.Error(err))
		} else if !ok {
			return 0, nil
		}
	}

	result := s.db.WithContext(ctx).Model(&models.Interest{}).
		Where("status = ? AND expires_at < ?", models.InterestStatusPending, time.Now()).
		Updates(map[string]interface{}{
			"status":     models.InterestStatusExpired,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire interests: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info("Expired stale interests", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
