package admin_test

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

	"github.com/nikohapp/nikoh-api/internal/admin"
	"github.com/nikohapp/nikoh-api/internal/database"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) admin.AdminService {
	svc, err := admin.NewService(zap.NewNop(), db)
	require.NoError(t, err)
	return svc
}

func createUser(t *testing.T, db *gorm.DB, email, status string, isAdmin bool) *models.User {
	user := &models.User{
		ID:                 uuid.New(),
		Email:              email,
		PasswordHash:       "x",
		Status:             status,
		PreferredLanguage:  "ru",
		IsAdmin:            isAdmin,
		VerificationStatus: models.VerificationStatusUnverified,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestStats(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	active := createUser(t, db, "a@example.com", models.UserStatusActive, false)
	createUser(t, db, "p@example.com", models.UserStatusPending, false)
	verified := createUser(t, db, "v@example.com", models.UserStatusActive, false)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", verified.ID).
		Update("verification_status", models.VerificationStatusVerified).Error)

	a, b := models.OrderUserPair(active.ID, verified.ID)
	require.NoError(t, db.Create(&models.Match{
		ID: uuid.New(), UserAID: a, UserBID: b,
		Status: models.MatchStatusActive, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}).Error)

	now := time.Now()
	for _, amount := range []int64{2999, 4999} {
		require.NoError(t, db.Create(&models.Payment{
			ID: uuid.New(), UserID: active.ID,
			PaymentType: models.PaymentTypeStandard,
			Status:      models.PaymentStatusCompleted,
			Amount:      amount, Currency: "eur",
			CompletedAt: &now, CreatedAt: now, UpdatedAt: now,
		}).Error)
	}
	require.NoError(t, db.Create(&models.Payment{
		ID: uuid.New(), UserID: active.ID,
		PaymentType: models.PaymentTypeStandard,
		Status:      models.PaymentStatusFailed,
		Amount:      2999, Currency: "eur",
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.ActiveUsers)
	assert.Equal(t, int64(1), stats.VerifiedUsers)
	assert.Equal(t, int64(1), stats.TotalMatches)
	assert.Equal(t, int64(1), stats.ActiveMatches)
	assert.Equal(t, int64(2), stats.CompletedPayments)
	assert.Equal(t, int64(7998), stats.RevenueMinorUnits)
}

func TestSearchUsers(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	createUser(t, db, "anna@example.com", models.UserStatusActive, false)
	createUser(t, db, "bekzod@example.com", models.UserStatusActive, false)
	createUser(t, db, "anna.banned@example.com", models.UserStatusSuspended, false)

	users, total, err := svc.SearchUsers(ctx, admin.UserFilter{Query: "anna", Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	users, total, err = svc.SearchUsers(ctx, admin.UserFilter{Query: "anna", Status: models.UserStatusSuspended, Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "anna.banned@example.com", users[0].Email)
}

func TestSearchUsersByPhone(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	withPhone := createUser(t, db, "phoned@example.com", models.UserStatusActive, false)
	createUser(t, db, "phoneless@example.com", models.UserStatusActive, false)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", withPhone.ID).
		Update("phone", "+998901234567").Error)

	users, total, err := svc.SearchUsers(ctx, admin.UserFilter{Query: "99890123", Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "phoned@example.com", users[0].Email)
}

func TestBanUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user := createUser(t, db, "ban@example.com", models.UserStatusActive, false)
	adminUser := createUser(t, db, "root@example.com", models.UserStatusActive, true)

	banned, err := svc.BanUser(ctx, user.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusSuspended, banned.Status)

	restored, err := svc.BanUser(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, restored.Status)

	_, err = svc.BanUser(ctx, adminUser.ID, true)
	assert.ErrorIs(t, err, admin.ErrCannotBan)

	_, err = svc.BanUser(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, admin.ErrUserNotFound)
}
