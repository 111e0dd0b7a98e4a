package matches

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Service errors
var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotParticipant = errors.New("not a participant of this match")
	ErrMatchNotActive = errors.New("match is not active")
	ErrNoProfile      = errors.New("profile required")
	ErrOwnProfile     = errors.New("cannot score compatibility with yourself")
)

const whoLikesMeCacheTTL = 5 * time.Minute

// WhoLikesMeResult carries the who-likes-me response. Unverified users
// only receive the count.
type WhoLikesMeResult struct {
	Count     int64                 `json:"count"`
	Profiles  []models.ProfileBrief `json:"profiles,omitempty"`
	CountOnly bool                  `json:"count_only"`
}

// MatchService defines match operations
type MatchService interface {
	Start() error
	Stop() error
	List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.MatchWithProfile, int64, error)
	Get(ctx context.Context, matchID, userID uuid.UUID) (*models.MatchWithProfile, error)
	Unmatch(ctx context.Context, matchID, userID uuid.UUID) (*models.Match, error)
	Suggestions(ctx context.Context, userID uuid.UUID, limit int) ([]models.ProfileBrief, int, error)
	WhoLikesMe(ctx context.Context, userID uuid.UUID, limit int) (*WhoLikesMeResult, error)
	Compatibility(ctx context.Context, userID, targetUserID uuid.UUID) (*Compatibility, error)
}

// Service implements MatchService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
	redis  *redis.Client
}

// NewService creates a new MatchService
func NewService(logger *zap.Logger, db *gorm.DB, rdb *redis.Client) (MatchService, error) {
	return &Service{logger: logger, db: db, redis: rdb}, nil
}

// Start starts the matches service
func (s *Service) Start() error {
	s.logger.Info("Matches service started")
	return nil
}

// Stop stops the matches service
func (s *Service) Stop() error {
	s.logger.Info("Matches service stopped")
	return nil
}

// List returns the user's active matches, newest first, with the other
// participant's card.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.MatchWithProfile, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Match{}).
		Where("(user_a_id = ? OR user_b_id = ?) AND status = ?", userID, userID, models.MatchStatusActive)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	var matchRows []models.Match
	if err := query.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&matchRows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list matches: %w", err)
	}

	result := make([]models.MatchWithProfile, 0, len(matchRows))
	for _, m := range matchRows {
		entry := models.MatchWithProfile{Match: m}
		entry.Profile = s.briefFor(ctx, m.OtherUser(userID))
		result = append(result, entry)
	}
	return result, total, nil
}

// Get returns one match. Only participants can see it.
func (s *Service) Get(ctx context.Context, matchID, userID uuid.UUID) (*models.MatchWithProfile, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return &models.MatchWithProfile{
		Match:   *match,
		Profile: s.briefFor(ctx, match.OtherUser(userID)),
	}, nil
}

// Unmatch closes an active match and records who closed it
func (s *Service) Unmatch(ctx context.Context, matchID, userID uuid.UUID) (*models.Match, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if match.Status != models.MatchStatusActive {
		return nil, ErrMatchNotActive
	}

	now := time.Now()
	match.Status = models.MatchStatusUnmatched
	match.UnmatchedBy = &userID
	match.UnmatchedAt = &now
	match.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(match).Error; err != nil {
		return nil, fmt.Errorf("failed to unmatch: %w", err)
	}
	return match, nil
}

// Suggestions scores eligible candidates against the user's preferences
// and returns the top N by compatibility. Candidates who already
// interacted with the user (interests in either direction, active
// matches) are excluded.
func (s *Service) Suggestions(ctx context.Context, userID uuid.UUID, limit int) ([]models.ProfileBrief, int, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	userProfile, userPrefs, err := s.profileAndPrefs(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	exclude := map[uuid.UUID]struct{}{userID: {}}

	var sentTo []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Interest{}).
		Where("from_user_id = ?", userID).Pluck("to_user_id", &sentTo).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load sent interests: %w", err)
	}
	for _, id := range sentTo {
		exclude[id] = struct{}{}
	}

	var declinedFrom []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Interest{}).
		Where("to_user_id = ? AND status = ?", userID, models.InterestStatusDeclined).
		Pluck("from_user_id", &declinedFrom).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load declined interests: %w", err)
	}
	for _, id := range declinedFrom {
		exclude[id] = struct{}{}
	}

	var matchRows []models.Match
	if err := s.db.WithContext(ctx).
		Where("(user_a_id = ? OR user_b_id = ?) AND status = ?", userID, userID, models.MatchStatusActive).
		Find(&matchRows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load matches: %w", err)
	}
	for _, m := range matchRows {
		exclude[m.OtherUser(userID)] = struct{}{}
	}

	excludeIDs := make([]uuid.UUID, 0, len(exclude))
	for id := range exclude {
		excludeIDs = append(excludeIDs, id)
	}

	query := s.db.WithContext(ctx).Model(&models.Profile{}).
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("profiles.user_id NOT IN ?", excludeIDs).
		Where("profiles.is_visible = ?", true).
		Where("users.status = ?", models.UserStatusActive)
	if userProfile.SeekingGender != "" {
		query = query.Where("profiles.gender = ?", userProfile.SeekingGender)
	}

	var candidates []models.Profile
	if err := query.Find(&candidates).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load candidates: %w", err)
	}

	type scored struct {
		brief models.ProfileBrief
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for i := range candidates {
		cand := &candidates[i]
		var candUser models.User
		if err := s.db.WithContext(ctx).Where("id = ?", cand.UserID).First(&candUser).Error; err != nil {
			continue
		}
		var candPrefs *models.SearchPreference
		var prefs models.SearchPreference
		if err := s.db.WithContext(ctx).Where("user_id = ?", cand.UserID).First(&prefs).Error; err == nil {
			candPrefs = &prefs
		}

		compat := CalculateCompatibility(userProfile, userPrefs, cand, &candUser, candPrefs)
		brief := models.NewProfileBrief(cand, &candUser)
		brief.CompatibilityScore = compat.Score
		brief.IsMutualMatch = compat.Mutual
		ranked = append(ranked, scored{brief: brief, score: compat.Score})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	total := len(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	briefs := make([]models.ProfileBrief, len(ranked))
	for i, r := range ranked {
		briefs[i] = r.brief
	}
	return briefs, total, nil
}

// WhoLikesMe finds active users whose preferences match the caller's
// profile and who are seeking the caller's gender. Unverified callers
// receive the count only. The count is cached briefly in Redis.
func (s *Service) WhoLikesMe(ctx context.Context, userID uuid.UUID, limit int) (*WhoLikesMeResult, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	userProfile, _, err := s.profileAndPrefs(ctx, userID)
	if err != nil {
		return nil, err
	}

	userAge := userProfile.Age()
	userCountry := userProfile.Country()

	var prefRows []models.SearchPreference
	if err := s.db.WithContext(ctx).Model(&models.SearchPreference{}).
		Joins("JOIN users ON users.id = search_preferences.user_id").
		Joins("JOIN profiles ON profiles.user_id = search_preferences.user_id").
		Where("search_preferences.user_id <> ?", userID).
		Where("profiles.seeking_gender = ?", userProfile.Gender).
		Where("users.status = ?", models.UserStatusActive).
		Find(&prefRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	matching := make([]models.ProfileBrief, 0)
	for _, pref := range prefRows {
		if userAge != nil && (*userAge < pref.MinAge || *userAge > pref.MaxAge) {
			continue
		}
		if len(pref.PreferredCountries) > 0 && !listMatch(pref.PreferredCountries, userCountry) {
			continue
		}
		if len(pref.PreferredEthnicities) > 0 && !listMatch(pref.PreferredEthnicities, userProfile.Ethnicity) {
			continue
		}

		var candProfile models.Profile
		if err := s.db.WithContext(ctx).Where("user_id = ?", pref.UserID).First(&candProfile).Error; err != nil {
			continue
		}
		var candUser models.User
		if err := s.db.WithContext(ctx).Where("id = ?", pref.UserID).First(&candUser).Error; err != nil {
			continue
		}
		brief := models.NewProfileBrief(&candProfile, &candUser)
		brief.IsMutualMatch = true
		matching = append(matching, brief)
	}

	total := int64(len(matching))
	if s.redis != nil {
		key := fmt.Sprintf("who_likes_me:%s", userID)
		if err := s.redis.Set(ctx, key, strconv.FormatInt(total, 10), whoLikesMeCacheTTL).Err(); err != nil {
			s.logger.Debug("Failed to cache who-likes-me count", zap.Error(err))
		}
	}

	result := &WhoLikesMeResult{Count: total}
	if !user.IsVerified() {
		result.CountOnly = true
		return result, nil
	}
	if len(matching) > limit {
		matching = matching[:limit]
	}
	result.Profiles = matching
	return result, nil
}

// Compatibility scores a target profile against the caller
func (s *Service) Compatibility(ctx context.Context, userID, targetUserID uuid.UUID) (*Compatibility, error) {
	if userID == targetUserID {
		return nil, ErrOwnProfile
	}

	userProfile, userPrefs, err := s.profileAndPrefs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var candProfile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", targetUserID).First(&candProfile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoProfile
		}
		return nil, fmt.Errorf("failed to load target profile: %w", err)
	}
	var candUser models.User
	if err := s.db.WithContext(ctx).Where("id = ?", targetUserID).First(&candUser).Error; err != nil {
		return nil, fmt.Errorf("failed to load target user: %w", err)
	}
	var candPrefs *models.SearchPreference
	var prefs models.SearchPreference
	if err := s.db.WithContext(ctx).Where("user_id = ?", targetUserID).First(&prefs).Error; err == nil {
		candPrefs = &prefs
	}

	compat := CalculateCompatibility(userProfile, userPrefs, &candProfile, &candUser, candPrefs)
	return &compat, nil
}

func (s *Service) load(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	var match models.Match
	if err := s.db.WithContext(ctx).Where("id = ?", matchID).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to find match: %w", err)
	}
	return &match, nil
}

func (s *Service) profileAndPrefs(ctx context.Context, userID uuid.UUID) (*models.Profile, *models.SearchPreference, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNoProfile
		}
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}
	var prefs models.SearchPreference
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return &profile, nil, nil
	}
	return &profile, &prefs, nil
}

func (s *Service) briefFor(ctx context.Context, userID uuid.UUID) models.ProfileBrief {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return models.ProfileBrief{UserID: userID}
	}
	var owner models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&owner).Error; err != nil {
		return models.NewProfileBrief(&profile, nil)
	}
	return models.NewProfileBrief(&profile, &owner)
}
