package identities_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/internal/database"
	"github.com/nikohapp/nikoh-api/internal/events"
	"github.com/nikohapp/nikoh-api/internal/identities"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) identities.IdentityService {
	svc, err := identities.NewService(zap.NewNop(), db, nil, events.NewNopBus(), "test-secret", 1)
	require.NoError(t, err)
	return svc
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "aziza@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "aziza@example.com", user.Email)
	assert.Equal(t, models.UserStatusPending, user.Status)
	assert.Equal(t, "ru", user.PreferredLanguage)
	assert.Equal(t, models.VerificationStatusUnverified, user.VerificationStatus)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "dup@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &models.RegisterRequest{Email: "dup@example.com", Password: "password2"})
	assert.ErrorIs(t, err, identities.ErrEmailTaken)
}

func TestRegisterDuplicatePhone(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	phone := "+998901234567"
	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "a@example.com", Password: "password1", Phone: &phone})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &models.RegisterRequest{Email: "b@example.com", Password: "password2", Phone: &phone})
	assert.ErrorIs(t, err, identities.ErrPhoneTaken)
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user, err := svc.Register(ctx, &models.RegisterRequest{Email: "login@example.com", Password: "password1"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, "login@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.False(t, resp.Requires2FA)

	// The issued token must resolve back to the same user.
	userID, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLoginByPhone(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	phone := "+998909999999"
	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "phone@example.com", Password: "password1", Phone: &phone})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, phone, "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "wrong@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "wrong@example.com", "not-the-password")
	assert.ErrorIs(t, err, identities.ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Login(context.Background(), "nobody@example.com", "password1")
	assert.ErrorIs(t, err, identities.ErrInvalidCredentials)
}

func TestLoginSuspendedAccount(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user, err := svc.Register(ctx, &models.RegisterRequest{Email: "banned@example.com", Password: "password1"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("status", models.UserStatusSuspended).Error)

	_, err = svc.Login(ctx, "banned@example.com", "password1")
	assert.ErrorIs(t, err, identities.ErrAccountDisabled)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "sig@example.com", Password: "password1"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, "sig@example.com", "password1")
	require.NoError(t, err)

	other, err := identities.NewService(zap.NewNop(), db, nil, events.NewNopBus(), "another-secret", 1)
	require.NoError(t, err)
	_, err = other.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user, err := svc.Register(ctx, &models.RegisterRequest{Email: "admin@example.com", Password: "password1"})
	require.NoError(t, err)

	isAdmin, err := svc.IsAdmin(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_admin", true).Error)
	isAdmin, err = svc.IsAdmin(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}
