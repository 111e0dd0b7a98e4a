package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// ErrPreferencesNotFound is returned when a user has never saved
// search preferences
var ErrPreferencesNotFound = errors.New("search preferences not set")

// PreferenceRequest carries a full or partial preference update.
// Omitted fields keep their current value.
type PreferenceRequest struct {
	MinAge                      *int     `json:"min_age" binding:"omitempty,min=18,max=99"`
	MaxAge                      *int     `json:"max_age" binding:"omitempty,min=18,max=99"`
	PreferredCountries          []string `json:"preferred_countries"`
	PreferredCities             []string `json:"preferred_cities"`
	WillingToRelocate           *bool    `json:"willing_to_relocate"`
	RelocationCountries         []string `json:"relocation_countries"`
	PreferredEthnicities        []string `json:"preferred_ethnicities"`
	PreferredReligiousPractices []string `json:"preferred_religious_practices"`
	PreferredEducationLevels    []string `json:"preferred_education_levels"`
	PreferredMaritalStatuses    []string `json:"preferred_marital_statuses"`
	PreferredSmoking            []string `json:"preferred_smoking"`
	PreferredAlcohol            []string `json:"preferred_alcohol"`
	PreferredDiet               []string `json:"preferred_diet"`
	MinHeightCM                 *int     `json:"min_height_cm" binding:"omitempty,min=100,max=250"`
	MaxHeightCM                 *int     `json:"max_height_cm" binding:"omitempty,min=100,max=250"`
	MustBeVerified              *bool    `json:"must_be_verified"`
	HasChildrenAcceptable       *bool    `json:"has_children_acceptable"`
	ChildrenPreference          *string  `json:"children_preference" binding:"omitempty,oneof=wants_children no_children has_children no_preference"`
}

// PreferenceService manages per-user search preferences
type PreferenceService interface {
	Start() error
	Stop() error
	Get(ctx context.Context, userID uuid.UUID) (*models.SearchPreference, error)
	Upsert(ctx context.Context, userID uuid.UUID, req *PreferenceRequest) (*models.SearchPreference, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	Defaults() *models.SearchPreference
}

// Service implements PreferenceService on GORM
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new preference service
func NewService(logger *zap.Logger, db *gorm.DB) (PreferenceService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &Service{logger: logger, db: db}, nil
}

// Start starts the preference service
func (s *Service) Start() error {
	s.logger.Info("Preference service started")
	return nil
}

// Stop stops the preference service
func (s *Service) Stop() error {
	s.logger.Info("Preference service stopped")
	return nil
}

// Get returns the user's saved preferences
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.SearchPreference, error) {
	var prefs models.SearchPreference
	if err := s.db.WithContext(ctx).First(&prefs, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPreferencesNotFound
		}
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return &prefs, nil
}

// Upsert creates the user's preferences on first save and merges
// partial updates afterwards. Age and height bounds are normalized so
// min never exceeds max.
func (s *Service) Upsert(ctx context.Context, userID uuid.UUID, req *PreferenceRequest) (*models.SearchPreference, error) {
	var prefs models.SearchPreference
	err := s.db.WithContext(ctx).First(&prefs, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prefs = *models.DefaultSearchPreference()
		prefs.ID = uuid.New()
		prefs.UserID = userID
	} else if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	s.apply(&prefs, req)

	if prefs.MinAge > prefs.MaxAge {
		prefs.MinAge, prefs.MaxAge = prefs.MaxAge, prefs.MinAge
	}
	if prefs.MinHeightCM != nil && prefs.MaxHeightCM != nil && *prefs.MinHeightCM > *prefs.MaxHeightCM {
		prefs.MinHeightCM, prefs.MaxHeightCM = prefs.MaxHeightCM, prefs.MinHeightCM
	}

	if err := s.db.WithContext(ctx).Save(&prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return &prefs, nil
}

// Delete removes the user's saved preferences
func (s *Service) Delete(ctx context.Context, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SearchPreference{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete preferences: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPreferencesNotFound
	}
	return nil
}

// Defaults returns the preference values applied to users who have
// never saved any
func (s *Service) Defaults() *models.SearchPreference {
	return models.DefaultSearchPreference()
}

func (s *Service) apply(prefs *models.SearchPreference, req *PreferenceRequest) {
	if req.MinAge != nil {
		prefs.MinAge = *req.MinAge
	}
	if req.MaxAge != nil {
		prefs.MaxAge = *req.MaxAge
	}
	if req.PreferredCountries != nil {
		prefs.PreferredCountries = req.PreferredCountries
	}
	if req.PreferredCities != nil {
		prefs.PreferredCities = req.PreferredCities
	}
	if req.WillingToRelocate != nil {
		prefs.WillingToRelocate = *req.WillingToRelocate
	}
	if req.RelocationCountries != nil {
		prefs.RelocationCountries = req.RelocationCountries
	}
	if req.PreferredEthnicities != nil {
		prefs.PreferredEthnicities = req.PreferredEthnicities
	}
	if req.PreferredReligiousPractices != nil {
		prefs.PreferredReligiousPractices = req.PreferredReligiousPractices
	}
	if req.PreferredEducationLevels != nil {
		prefs.PreferredEducationLevels = req.PreferredEducationLevels
	}
	if req.PreferredMaritalStatuses != nil {
		prefs.PreferredMaritalStatuses = req.PreferredMaritalStatuses
	}
	if req.PreferredSmoking != nil {
		prefs.PreferredSmoking = req.PreferredSmoking
	}
	if req.PreferredAlcohol != nil {
		prefs.PreferredAlcohol = req.PreferredAlcohol
	}
	if req.PreferredDiet != nil {
		prefs.PreferredDiet = req.PreferredDiet
	}
	if req.MinHeightCM != nil {
		prefs.MinHeightCM = req.MinHeightCM
	}
	if req.MaxHeightCM != nil {
		prefs.MaxHeightCM = req.MaxHeightCM
	}
	if req.MustBeVerified != nil {
		prefs.MustBeVerified = *req.MustBeVerified
	}
	if req.HasChildrenAcceptable != nil {
		prefs.HasChildrenAcceptable = *req.HasChildrenAcceptable
	}
	if req.ChildrenPreference != nil {
		prefs.ChildrenPreference = *req.ChildrenPreference
	}
}
