package interests_test

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
	"github.com/nikohapp/nikoh-api/internal/events"
	"github.com/nikohapp/nikoh-api/internal/interests"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) interests.InterestService {
	svc, err := interests.NewService(zap.NewNop(), db, nil, events.NewNopBus())
	require.NoError(t, err)
	return svc
}

func createUserWithProfile(t *testing.T, db *gorm.DB, email string, visible bool) *models.User {
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
		Gender:        "female",
		SeekingGender: "male",
		IsVisible:     visible,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, db.Create(profile).Error)
	return user
}

func TestCreateInterest(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "from@example.com", true)
	to := createUserWithProfile(t, db, "to@example.com", true)

	msg := "Salam! I liked your profile."
	interest, err := svc.Create(ctx, from.ID, to.ID, &msg)
	require.NoError(t, err)
	assert.Equal(t, models.InterestStatusPending, interest.Status)
	assert.WithinDuration(t, time.Now().Add(models.InterestTTL), interest.ExpiresAt, time.Minute)
}

type recordingBus struct {
	events []string
}

func (b *recordingBus) Publish(_ context.Context, event string, _ interface{}) error {
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func TestCreateInterestPublishesEvent(t *testing.T) {
	db := setupTestDB(t)
	bus := &recordingBus{}
	svc, err := interests.NewService(zap.NewNop(), db, nil, bus)
	require.NoError(t, err)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "ev1@example.com", true)
	to := createUserWithProfile(t, db, "ev2@example.com", true)

	_, err = svc.Create(ctx, from.ID, to.ID, nil)
	require.NoError(t, err)
	assert.Contains(t, bus.events, events.InterestCreated)
}

func TestCreateInterestRejectsSelf(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	user := createUserWithProfile(t, db, "self@example.com", true)

	_, err := svc.Create(context.Background(), user.ID, user.ID, nil)
	assert.ErrorIs(t, err, interests.ErrSelfInterest)
}

func TestCreateInterestHiddenTarget(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	from := createUserWithProfile(t, db, "f@example.com", true)
	hidden := createUserWithProfile(t, db, "h@example.com", false)

	_, err := svc.Create(context.Background(), from.ID, hidden.ID, nil)
	assert.ErrorIs(t, err, interests.ErrTargetNotVisible)
}

func TestCreateInterestDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "d1@example.com", true)
	to := createUserWithProfile(t, db, "d2@example.com", true)

	_, err := svc.Create(ctx, from.ID, to.ID, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, from.ID, to.ID, nil)
	assert.ErrorIs(t, err, interests.ErrDuplicateInterest)

	// The reverse direction is also blocked while one is pending
	_, err = svc.Create(ctx, to.ID, from.ID, nil)
	assert.ErrorIs(t, err, interests.ErrDuplicateInterest)
}

func TestRespondAcceptCreatesMatch(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "a1@example.com", true)
	to := createUserWithProfile(t, db, "a2@example.com", true)

	interest, err := svc.Create(ctx, from.ID, to.ID, nil)
	require.NoError(t, err)

	updated, match, err := svc.Respond(ctx, interest.ID, to.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.InterestStatusAccepted, updated.Status)
	require.NotNil(t, match)
	assert.Equal(t, models.MatchStatusActive, match.Status)

	// Pair ordering invariant holds regardless of who accepted
	assert.Less(t, match.UserAID.String(), match.UserBID.String())

	// A new interest between matched users is rejected
	_, err = svc.Create(ctx, from.ID, to.ID, nil)
	assert.ErrorIs(t, err, interests.ErrAlreadyMatched)
}

func TestRespondDecline(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "dec1@example.com", true)
	to := createUserWithProfile(t, db, "dec2@example.com", true)

	interest, err := svc.Create(ctx, from.ID, to.ID, nil)
	require.NoError(t, err)

	updated, match, err := svc.Respond(ctx, interest.ID, to.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.InterestStatusDeclined, updated.Status)
	assert.Nil(t, match)
	assert.NotNil(t, updated.RespondedAt)
}

func TestRespondOnlyRecipient(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "r1@example.com", true)
	to := createUserWithProfile(t, db, "r2@example.com", true)

	interest, err := svc.Create(ctx, from.ID, to.ID, nil)
	require.NoError(t, err)

	_, _, err = svc.Respond(ctx, interest.ID, from.ID, true)
	assert.ErrorIs(t, err, interests.ErrNotRecipient)

	_, _, err = svc.Respond(ctx, uuid.New(), to.ID, true)
	assert.ErrorIs(t, err, interests.ErrInterestNotFound)
}

func TestCancel(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "c1@example.com", true)
	to := createUserWithProfile(t, db, "c2@example.com", true)

	interest, err := svc.Create(ctx, from.ID, to.ID, nil)
	require.NoError(t, err)

	// Only the sender can cancel
	err = svc.Cancel(ctx, interest.ID, to.ID)
	assert.ErrorIs(t, err, interests.ErrNotSender)

	require.NoError(t, svc.Cancel(ctx, interest.ID, from.ID))

	// Cancelled interests cannot be responded to
	_, _, err = svc.Respond(ctx, interest.ID, to.ID, true)
	assert.ErrorIs(t, err, interests.ErrInterestNotPending)
}

func TestListReceivedAndSent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "l1@example.com", true)
	to := createUserWithProfile(t, db, "l2@example.com", true)

	_, err := svc.Create(ctx, from.ID, to.ID, nil)
	require.NoError(t, err)

	received, total, err := svc.ListReceived(ctx, to.ID, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, received, 1)
	assert.Equal(t, from.ID, received[0].Profile.UserID)

	sent, total, err := svc.ListSent(ctx, from.ID, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, sent, 1)

	none, total, err := svc.ListReceived(ctx, from.ID, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, none)
}

func TestExpireOldInterests(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	from := createUserWithProfile(t, db, "e1@example.com", true)
	to := createUserWithProfile(t, db, "e2@example.com", true)

	interest, err := svc.Create(ctx, from.ID, to.ID, nil)
	require.NoError(t, err)

	// Push the deadline into the past
	require.NoError(t, db.Model(&models.Interest{}).Where("id = ?", interest.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	count, err := svc.ExpireOldInterests(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var reloaded models.Interest
	require.NoError(t, db.Where("id = ?", interest.ID).First(&reloaded).Error)
	assert.Equal(t, models.InterestStatusExpired, reloaded.Status)

	// Second sweep finds nothing
	count, err = svc.ExpireOldInterests(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
