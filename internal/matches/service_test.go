package matches_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/internal/database"
	"github.com/nikohapp/nikoh-api/internal/matches"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) matches.MatchService {
	svc, err := matches.NewService(zap.NewNop(), db, nil)
	require.NoError(t, err)
	return svc
}

func createUserWithProfile(t *testing.T, db *gorm.DB, email, gender, seeking string) *models.User {
	user := &models.User{
		ID:                 uuid.New(),
		Email:              email,
		PasswordHash:       "x",
		Status:             models.UserStatusActive,
		PreferredLanguage:  "ru",
		VerificationStatus: models.VerificationStatusUnverified,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	require.NoError(t, db.Create(user).Error)
	profile := &models.Profile{
		ID:            uuid.New(),
		UserID:        user.ID,
		Gender:        gender,
		SeekingGender: seeking,
		IsVisible:     true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, db.Create(profile).Error)
	return user
}

func createMatch(t *testing.T, db *gorm.DB, x, y uuid.UUID) *models.Match {
	a, b := models.OrderUserPair(x, y)
	match := &models.Match{
		ID:        uuid.New(),
		UserAID:   a,
		UserBID:   b,
		Status:    models.MatchStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(match).Error)
	return match
}

func TestListMatches(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUserWithProfile(t, db, "alice@example.com", "female", "male")
	bob := createUserWithProfile(t, db, "bob@example.com", "male", "female")
	outsider := createUserWithProfile(t, db, "out@example.com", "male", "female")
	createMatch(t, db, alice.ID, bob.ID)

	list, total, err := svc.List(ctx, alice.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, bob.ID, list[0].Profile.UserID)

	_, total, err = svc.List(ctx, outsider.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestGetMatchParticipantsOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUserWithProfile(t, db, "a@example.com", "female", "male")
	bob := createUserWithProfile(t, db, "b@example.com", "male", "female")
	eve := createUserWithProfile(t, db, "e@example.com", "female", "male")
	match := createMatch(t, db, alice.ID, bob.ID)

	got, err := svc.Get(ctx, match.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.Profile.UserID)

	_, err = svc.Get(ctx, match.ID, eve.ID)
	assert.ErrorIs(t, err, matches.ErrNotParticipant)

	_, err = svc.Get(ctx, uuid.New(), alice.ID)
	assert.ErrorIs(t, err, matches.ErrMatchNotFound)
}

func TestUnmatch(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUserWithProfile(t, db, "u1@example.com", "female", "male")
	bob := createUserWithProfile(t, db, "u2@example.com", "male", "female")
	match := createMatch(t, db, alice.ID, bob.ID)

	closed, err := svc.Unmatch(ctx, match.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusUnmatched, closed.Status)
	require.NotNil(t, closed.UnmatchedBy)
	assert.Equal(t, alice.ID, *closed.UnmatchedBy)
	assert.NotNil(t, closed.UnmatchedAt)

	// Closing twice fails
	_, err = svc.Unmatch(ctx, match.ID, bob.ID)
	assert.ErrorIs(t, err, matches.ErrMatchNotActive)

	// Closed matches no longer show in the list
	_, total, err := svc.List(ctx, alice.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestSuggestions(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seeker := createUserWithProfile(t, db, "seek@example.com", "male", "female")

	// Two candidates, one verified
	plain := createUserWithProfile(t, db, "cand1@example.com", "female", "male")
	verified := createUserWithProfile(t, db, "cand2@example.com", "female", "male")
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", verified.ID).
		Update("verification_status", models.VerificationStatusVerified).Error)

	// Wrong gender never appears
	createUserWithProfile(t, db, "cand3@example.com", "male", "female")

	briefs, total, err := svc.Suggestions(ctx, seeker.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, briefs, 2)

	// The verified candidate scores higher and comes first
	assert.Equal(t, verified.ID, briefs[0].UserID)
	assert.Equal(t, plain.ID, briefs[1].UserID)
	assert.Greater(t, briefs[0].CompatibilityScore, briefs[1].CompatibilityScore)
}

func TestSuggestionsExcludesInteracted(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seeker := createUserWithProfile(t, db, "s@example.com", "male", "female")
	matched := createUserWithProfile(t, db, "m@example.com", "female", "male")
	interested := createUserWithProfile(t, db, "i@example.com", "female", "male")

	createMatch(t, db, seeker.ID, matched.ID)
	require.NoError(t, db.Create(&models.Interest{
		ID:         uuid.New(),
		FromUserID: seeker.ID,
		ToUserID:   interested.ID,
		Status:     models.InterestStatusPending,
		ExpiresAt:  time.Now().Add(models.InterestTTL),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}).Error)

	briefs, total, err := svc.Suggestions(ctx, seeker.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, briefs)
}

func TestSuggestionsRequiresProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, _, err := svc.Suggestions(context.Background(), uuid.New(), 10)
	assert.ErrorIs(t, err, matches.ErrNoProfile)
}

func TestWhoLikesMe(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	birth := time.Now().AddDate(-30, 0, -1)
	caller := createUserWithProfile(t, db, "me@example.com", "female", "male")
	require.NoError(t, db.Model(&models.Profile{}).Where("user_id = ?", caller.ID).
		Update("verified_birth_date", birth).Error)

	// An admirer seeking females with preferences that fit the caller
	admirer := createUserWithProfile(t, db, "adm@example.com", "male", "female")
	require.NoError(t, db.Create(&models.SearchPreference{
		ID:        uuid.New(),
		UserID:    admirer.ID,
		MinAge:    25,
		MaxAge:    35,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}).Error)

	// Unverified callers get the count only
	result, err := svc.WhoLikesMe(ctx, caller.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Count)
	assert.True(t, result.CountOnly)
	assert.Empty(t, result.Profiles)

	// Verified callers see the profiles
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", caller.ID).
		Update("verification_status", models.VerificationStatusVerified).Error)
	result, err = svc.WhoLikesMe(ctx, caller.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Count)
	assert.False(t, result.CountOnly)
	require.Len(t, result.Profiles, 1)
	assert.Equal(t, admirer.ID, result.Profiles[0].UserID)
}

func TestCompatibilityEndpointErrors(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user := createUserWithProfile(t, db, "cc@example.com", "male", "female")

	_, err := svc.Compatibility(ctx, user.ID, user.ID)
	assert.ErrorIs(t, err, matches.ErrOwnProfile)

	_, err = svc.Compatibility(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, matches.ErrNoProfile)
}
