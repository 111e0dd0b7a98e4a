package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Service errors
var (
	ErrProfileExists   = errors.New("profile already exists")
	ErrProfileNotFound = errors.New("profile not found")
)

// ProfileRequest carries the writable profile fields. Nil pointers are
// left unchanged on update.
type ProfileRequest struct {
	Gender        *string `json:"gender" binding:"omitempty,oneof=male female"`
	SeekingGender *string `json:"seeking_gender" binding:"omitempty,oneof=male female"`

	HeightCM *int    `json:"height_cm" binding:"omitempty,min=100,max=250"`
	WeightKG *int    `json:"weight_kg" binding:"omitempty,min=30,max=300"`
	Build    *string `json:"build" binding:"omitempty,max=30"`

	Ethnicity      *string  `json:"ethnicity" binding:"omitempty,max=50"`
	EthnicityOther *string  `json:"ethnicity_other" binding:"omitempty,max=100"`
	Languages      []string `json:"languages"`
	OriginalRegion *string  `json:"original_region" binding:"omitempty,max=100"`

	CurrentCity     *string `json:"current_city" binding:"omitempty,max=100"`
	LivingSituation *string `json:"living_situation" binding:"omitempty,max=50"`

	ReligiousPractice *string `json:"religious_practice" binding:"omitempty,max=50"`
	Smoking           *string `json:"smoking" binding:"omitempty,max=30"`
	Alcohol           *string `json:"alcohol" binding:"omitempty,max=30"`
	Diet              *string `json:"diet" binding:"omitempty,max=30"`

	Profession *string  `json:"profession" binding:"omitempty,max=100"`
	Hobbies    []string `json:"hobbies"`

	AboutMe         *string `json:"about_me" binding:"omitempty,max=4000"`
	FamilyMeaning   *string `json:"family_meaning" binding:"omitempty,max=4000"`
	IdealPartner    *string `json:"ideal_partner" binding:"omitempty,max=4000"`
	GoalsDreams     *string `json:"goals_dreams" binding:"omitempty,max=4000"`
	MessageToFamily *string `json:"message_to_family" binding:"omitempty,max=4000"`

	IsVisible *bool `json:"is_visible"`
}

// SearchFilter narrows the profile search
type SearchFilter struct {
	Gender             *string  `json:"gender" binding:"omitempty,oneof=male female"`
	Countries          []string `json:"countries"`
	Ethnicities        []string `json:"ethnicities"`
	ReligiousPractices []string `json:"religious_practices"`
	MinHeightCM        *int     `json:"min_height_cm"`
	MaxHeightCM        *int     `json:"max_height_cm"`
	MinAge             *int     `json:"min_age" binding:"omitempty,min=18,max=99"`
	MaxAge             *int     `json:"max_age" binding:"omitempty,min=18,max=99"`
	Page               int      `json:"page"`
	PerPage            int      `json:"per_page"`
}

// ProfileService defines profile operations
type ProfileService interface {
	Start() error
	Stop() error
	Create(ctx context.Context, userID uuid.UUID, req *ProfileRequest) (*models.Profile, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetForViewer(ctx context.Context, targetUserID, viewerID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, req *ProfileRequest) (*models.Profile, error)
	Search(ctx context.Context, viewerID uuid.UUID, filter *SearchFilter) ([]models.ProfileBrief, int64, error)
}

// Service implements ProfileService
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	sanitizer *bluemonday.Policy
}

// NewService creates a new ProfileService
func NewService(logger *zap.Logger, db *gorm.DB) (ProfileService, error) {
	return &Service{
		logger:    logger,
		db:        db,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// Start starts the profiles service
func (s *Service) Start() error {
	s.logger.Info("Profiles service started")
	return nil
}

// Stop stops the profiles service
func (s *Service) Stop() error {
	s.logger.Info("Profiles service stopped")
	return nil
}

// Create creates the profile for a user. A user has at most one profile.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *ProfileRequest) (*models.Profile, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}
	if count > 0 {
		return nil, ErrProfileExists
	}
	if req.Gender == nil || req.SeekingGender == nil {
		return nil, fmt.Errorf("gender and seeking_gender are required")
	}

	profile := &models.Profile{
		ID:        uuid.New(),
		UserID:    userID,
		IsVisible: true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.apply(profile, req)
	profile.ProfileScore, profile.IsComplete = ComputeScore(profile)

	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// GetByUser returns the profile owned by the user
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &profile, nil
}

// GetForViewer returns another user's profile. Hidden profiles are
// only visible to their owner.
func (s *Service) GetForViewer(ctx context.Context, targetUserID, viewerID uuid.UUID) (*models.Profile, error) {
	profile, err := s.GetByUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if !profile.IsVisible && targetUserID != viewerID {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// Update applies the non-nil fields and recomputes the completeness score
func (s *Service) Update(ctx context.Context, userID uuid.UUID, req *ProfileRequest) (*models.Profile, error) {
	profile, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.apply(profile, req)
	profile.ProfileScore, profile.IsComplete = ComputeScore(profile)
	profile.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

// Search returns visible profiles of active users matching the filter,
// ordered by completeness score.
func (s *Service) Search(ctx context.Context, viewerID uuid.UUID, filter *SearchFilter) ([]models.ProfileBrief, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Profile{}).
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("profiles.is_visible = ?", true).
		Where("users.status = ?", models.UserStatusActive).
		Where("profiles.user_id <> ?", viewerID)

	if filter.Gender != nil {
		query = query.Where("profiles.gender = ?", *filter.Gender)
	}
	if len(filter.Countries) > 0 {
		query = query.Where("profiles.verified_nationality IN ? OR profiles.verified_residence_country IN ?", filter.Countries, filter.Countries)
	}
	if len(filter.Ethnicities) > 0 {
		query = query.Where("profiles.ethnicity IN ?", filter.Ethnicities)
	}
	if len(filter.ReligiousPractices) > 0 {
		query = query.Where("profiles.religious_practice IN ?", filter.ReligiousPractices)
	}
	if filter.MinHeightCM != nil {
		query = query.Where("profiles.height_cm >= ?", *filter.MinHeightCM)
	}
	if filter.MaxHeightCM != nil {
		query = query.Where("profiles.height_cm <= ?", *filter.MaxHeightCM)
	}

	now := time.Now()
	if filter.MinAge != nil {
		// Born at least MinAge years ago
		query = query.Where("profiles.verified_birth_date <= ?", now.AddDate(-*filter.MinAge, 0, 0))
	}
	if filter.MaxAge != nil {
		// Younger than MaxAge+1
		query = query.Where("profiles.verified_birth_date > ?", now.AddDate(-*filter.MaxAge-1, 0, 0))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	var results []models.Profile
	if err := query.Order("profiles.profile_score DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search profiles: %w", err)
	}

	briefs := make([]models.ProfileBrief, 0, len(results))
	for i := range results {
		var owner models.User
		if err := s.db.WithContext(ctx).Where("id = ?", results[i].UserID).First(&owner).Error; err != nil {
			continue
		}
		briefs = append(briefs, models.NewProfileBrief(&results[i], &owner))
	}
	return briefs, total, nil
}

// apply copies non-nil request fields onto the profile, sanitizing all
// free-text input.
func (s *Service) apply(p *models.Profile, req *ProfileRequest) {
	clean := func(v *string) *string {
		if v == nil {
			return nil
		}
		sanitized := s.sanitizer.Sanitize(*v)
		return &sanitized
	}

	if req.Gender != nil {
		p.Gender = *req.Gender
	}
	if req.SeekingGender != nil {
		p.SeekingGender = *req.SeekingGender
	}
	if req.HeightCM != nil {
		p.HeightCM = req.HeightCM
	}
	if req.WeightKG != nil {
		p.WeightKG = req.WeightKG
	}
	if req.Build != nil {
		p.Build = clean(req.Build)
	}
	if req.Ethnicity != nil {
		p.Ethnicity = clean(req.Ethnicity)
	}
	if req.EthnicityOther != nil {
		p.EthnicityOther = clean(req.EthnicityOther)
	}
	if req.Languages != nil {
		p.Languages = models.StringList(req.Languages)
	}
	if req.OriginalRegion != nil {
		p.OriginalRegion = clean(req.OriginalRegion)
	}
	if req.CurrentCity != nil {
		p.CurrentCity = clean(req.CurrentCity)
	}
	if req.LivingSituation != nil {
		p.LivingSituation = clean(req.LivingSituation)
	}
	if req.ReligiousPractice != nil {
		p.ReligiousPractice = clean(req.ReligiousPractice)
	}
	if req.Smoking != nil {
		p.Smoking = clean(req.Smoking)
	}
	if req.Alcohol != nil {
		p.Alcohol = clean(req.Alcohol)
	}
	if req.Diet != nil {
		p.Diet = clean(req.Diet)
	}
	if req.Profession != nil {
		p.Profession = clean(req.Profession)
	}
	if req.Hobbies != nil {
		hobbies := make([]string, 0, len(req.Hobbies))
		for _, h := range req.Hobbies {
			hobbies = append(hobbies, s.sanitizer.Sanitize(h))
		}
		p.Hobbies = models.StringList(hobbies)
	}
	if req.AboutMe != nil {
		p.AboutMe = clean(req.AboutMe)
	}
	if req.FamilyMeaning != nil {
		p.FamilyMeaning = clean(req.FamilyMeaning)
	}
	if req.IdealPartner != nil {
		p.IdealPartner = clean(req.IdealPartner)
	}
	if req.GoalsDreams != nil {
		p.GoalsDreams = clean(req.GoalsDreams)
	}
	if req.MessageToFamily != nil {
		p.MessageToFamily = clean(req.MessageToFamily)
	}
	if req.IsVisible != nil {
		p.IsVisible = *req.IsVisible
	}
}
