package profiles_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/internal/database"
	"github.com/nikohapp/nikoh-api/internal/profiles"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
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
	return user
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateProfile(t *testing.T) {
	db := setupTestDB(t)
	svc, err := profiles.NewService(zap.NewNop(), db)
	require.NoError(t, err)
	ctx := context.Background()
	user := createUser(t, db, "p1@example.com")

	profile, err := svc.Create(ctx, user.ID, &profiles.ProfileRequest{
		Gender:        strPtr("female"),
		SeekingGender: strPtr("male"),
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.UserID)
	assert.True(t, profile.IsVisible)
	assert.Equal(t, 30, profile.ProfileScore)
	assert.False(t, profile.IsComplete)

	// Only one profile per user
	_, err = svc.Create(ctx, user.ID, &profiles.ProfileRequest{
		Gender:        strPtr("female"),
		SeekingGender: strPtr("male"),
	})
	assert.ErrorIs(t, err, profiles.ErrProfileExists)
}

func TestCreateProfileRequiresGender(t *testing.T) {
	db := setupTestDB(t)
	svc, err := profiles.NewService(zap.NewNop(), db)
	require.NoError(t, err)
	user := createUser(t, db, "p2@example.com")

	_, err = svc.Create(context.Background(), user.ID, &profiles.ProfileRequest{Gender: strPtr("male")})
	assert.Error(t, err)
}

func TestUpdateSanitizesFreeText(t *testing.T) {
	db := setupTestDB(t)
	svc, err := profiles.NewService(zap.NewNop(), db)
	require.NoError(t, err)
	ctx := context.Background()
	user := createUser(t, db, "p3@example.com")

	_, err = svc.Create(ctx, user.ID, &profiles.ProfileRequest{
		Gender:        strPtr("male"),
		SeekingGender: strPtr("female"),
	})
	require.NoError(t, err)

	profile, err := svc.Update(ctx, user.ID, &profiles.ProfileRequest{
		AboutMe: strPtr(`<script>alert(1)</script>I enjoy quiet evenings and long walks by the river.`),
	})
	require.NoError(t, err)
	require.NotNil(t, profile.AboutMe)
	assert.NotContains(t, *profile.AboutMe, "<script>")
	assert.Contains(t, *profile.AboutMe, "quiet evenings")
}

func TestUpdateRecomputesScore(t *testing.T) {
	db := setupTestDB(t)
	svc, err := profiles.NewService(zap.NewNop(), db)
	require.NoError(t, err)
	ctx := context.Background()
	user := createUser(t, db, "p4@example.com")

	_, err = svc.Create(ctx, user.ID, &profiles.ProfileRequest{
		Gender:        strPtr("female"),
		SeekingGender: strPtr("male"),
	})
	require.NoError(t, err)

	essay := strings.Repeat("family is the center of my life ", 4)
	profile, err := svc.Update(ctx, user.ID, &profiles.ProfileRequest{
		HeightCM:          intPtr(165),
		WeightKG:          intPtr(55),
		Build:             strPtr("slim"),
		Ethnicity:         strPtr("uzbek"),
		Languages:         []string{"ru", "uz"},
		OriginalRegion:    strPtr("Tashkent"),
		CurrentCity:       strPtr("Berlin"),
		LivingSituation:   strPtr("alone"),
		ReligiousPractice: strPtr("practicing"),
		Smoking:           strPtr("never"),
		Alcohol:           strPtr("never"),
		Profession:        strPtr("architect"),
		Hobbies:           []string{"cooking"},
		AboutMe:           strPtr(essay),
		IdealPartner:      strPtr(essay),
		FamilyMeaning:     strPtr(essay),
		GoalsDreams:       strPtr(essay),
		MessageToFamily:   strPtr(essay),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, profile.ProfileScore)
	assert.True(t, profile.IsComplete)
}

func TestComputeScore(t *testing.T) {
	essay := strings.Repeat("a", 60)
	short := strings.Repeat("b", 35)

	tests := []struct {
		name     string
		profile  models.Profile
		score    int
		complete bool
	}{
		{"empty", models.Profile{}, 0, false},
		{"genders only", models.Profile{Gender: "male", SeekingGender: "female"}, 30, false},
		{
			"genders and long essays",
			models.Profile{Gender: "male", SeekingGender: "female", AboutMe: &essay, IdealPartner: &essay},
			50, false,
		},
		{
			"over threshold",
			models.Profile{
				Gender: "male", SeekingGender: "female",
				AboutMe: &essay, IdealPartner: &essay,
				FamilyMeaning: &short, GoalsDreams: &short, MessageToFamily: &short,
			},
			70, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, complete := profiles.ComputeScore(&tt.profile)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.complete, complete)
		})
	}
}

func TestGetForViewerHiddenProfile(t *testing.T) {
	db := setupTestDB(t)
	svc, err := profiles.NewService(zap.NewNop(), db)
	require.NoError(t, err)
	ctx := context.Background()
	owner := createUser(t, db, "hidden@example.com")
	viewer := createUser(t, db, "viewer@example.com")

	hidden := false
	_, err = svc.Create(ctx, owner.ID, &profiles.ProfileRequest{
		Gender:        strPtr("male"),
		SeekingGender: strPtr("female"),
		IsVisible:     &hidden,
	})
	require.NoError(t, err)

	_, err = svc.GetForViewer(ctx, owner.ID, viewer.ID)
	assert.ErrorIs(t, err, profiles.ErrProfileNotFound)

	// The owner can always see their own profile
	profile, err := svc.GetForViewer(ctx, owner.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, profile.IsVisible)
}

func TestSearch(t *testing.T) {
	db := setupTestDB(t)
	svc, err := profiles.NewService(zap.NewNop(), db)
	require.NoError(t, err)
	ctx := context.Background()

	viewer := createUser(t, db, "searcher@example.com")
	_, err = svc.Create(ctx, viewer.ID, &profiles.ProfileRequest{
		Gender:        strPtr("male"),
		SeekingGender: strPtr("female"),
	})
	require.NoError(t, err)

	for i, email := range []string{"w1@example.com", "w2@example.com"} {
		u := createUser(t, db, email)
		req := &profiles.ProfileRequest{
			Gender:        strPtr("female"),
			SeekingGender: strPtr("male"),
		}
		if i == 1 {
			hidden := false
			req.IsVisible = &hidden
		}
		_, err = svc.Create(ctx, u.ID, req)
		require.NoError(t, err)
	}

	gender := "female"
	briefs, total, err := svc.Search(ctx, viewer.ID, &profiles.SearchFilter{Gender: &gender})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, briefs, 1)

	// The viewer's own profile never shows up in results
	male := "male"
	briefs, total, err = svc.Search(ctx, viewer.ID, &profiles.SearchFilter{Gender: &male})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, briefs)
}

func TestSearchSkipsInactiveUsers(t *testing.T) {
	db := setupTestDB(t)
	svc, err := profiles.NewService(zap.NewNop(), db)
	require.NoError(t, err)
	ctx := context.Background()

	viewer := createUser(t, db, "active@example.com")
	suspended := createUser(t, db, "susp@example.com")
	_, err = svc.Create(ctx, suspended.ID, &profiles.ProfileRequest{
		Gender:        strPtr("female"),
		SeekingGender: strPtr("male"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", suspended.ID).
		Update("status", models.UserStatusSuspended).Error)

	_, total, err := svc.Search(ctx, viewer.ID, &profiles.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
