package payments_test

import (
	"context"
	"fmt"
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
	"github.com/nikohapp/nikoh-api/internal/payments"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

const webhookSecret = "whsec_test"

type stubProvider struct {
	intents   int
	refunds   []string
	refundErr error
}

func (p *stubProvider) CreateIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (string, string, error) {
	p.intents++
	id := fmt.Sprintf("pi_test_%d", p.intents)
	return id, id + "_secret", nil
}

func (p *stubProvider) Refund(ctx context.Context, intentID string) error {
	if p.refundErr != nil {
		return p.refundErr
	}
	p.refunds = append(p.refunds, intentID)
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func testPrices() payments.PriceTable {
	return payments.PriceTable{
		Currency:      "eur",
		StandardPrice: 2999,
		PriorityPrice: 4999,
		RenewalPrice:  1499,
	}
}

func newTestService(t *testing.T, db *gorm.DB, provider payments.IntentProvider) payments.PaymentService {
	svc, err := payments.NewService(zap.NewNop(), db, provider, events.NewNopBus(), testPrices(), "pk_test_123", webhookSecret)
	require.NoError(t, err)
	return svc
}

func TestPricing(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	pricing := svc.Pricing()
	assert.Equal(t, "eur", pricing.Currency)
	require.Len(t, pricing.Options, 3)
	assert.Equal(t, models.PaymentTypeStandard, pricing.Options[0].PaymentType)
	assert.Equal(t, int64(2999), pricing.Options[0].Amount)
}

func TestCreateIntent(t *testing.T) {
	db := setupTestDB(t)
	provider := &stubProvider{}
	svc := newTestService(t, db, provider)
	ctx := context.Background()
	userID := uuid.New()

	resp, err := svc.CreateIntent(ctx, userID, models.PaymentTypePriority)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, resp.Payment.Status)
	assert.Equal(t, int64(4999), resp.Payment.Amount)
	assert.Equal(t, "pi_test_1_secret", resp.ClientSecret)
	assert.Equal(t, "pk_test_123", resp.PublishableKey)
	require.NotNil(t, resp.Payment.ProviderIntentID)
	assert.Equal(t, "pi_test_1", *resp.Payment.ProviderIntentID)

	_, err = svc.CreateIntent(ctx, userID, "donation")
	assert.ErrorIs(t, err, payments.ErrInvalidPaymentType)
}

func TestCreateIntentWithoutProvider(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, nil)

	_, err := svc.CreateIntent(context.Background(), uuid.New(), models.PaymentTypeStandard)
	assert.ErrorIs(t, err, payments.ErrProviderDisabled)
}

func succeededEvent(intentID string) []byte {
	return []byte(fmt.Sprintf(`{"type":"payment_intent.succeeded","data":{"object":{"id":"%s"}}}`, intentID))
}

func TestWebhookCompletesPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubProvider{})
	ctx := context.Background()
	userID := uuid.New()

	resp, err := svc.CreateIntent(ctx, userID, models.PaymentTypeStandard)
	require.NoError(t, err)

	body := succeededEvent(*resp.Payment.ProviderIntentID)
	header := payments.SignPayload(webhookSecret, body, time.Now())
	require.NoError(t, svc.HandleWebhook(ctx, body, header))

	payment, err := svc.Get(ctx, resp.Payment.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.NotNil(t, payment.CompletedAt)
	assert.True(t, payment.IsValidForVerification())

	// Repeated delivery is a no-op
	require.NoError(t, svc.HandleWebhook(ctx, body, payments.SignPayload(webhookSecret, body, time.Now())))
}

func TestWebhookFailedPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubProvider{})
	ctx := context.Background()
	userID := uuid.New()

	resp, err := svc.CreateIntent(ctx, userID, models.PaymentTypeStandard)
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(
		`{"type":"payment_intent.payment_failed","data":{"object":{"id":"%s","last_payment_error":{"message":"card declined"}}}}`,
		*resp.Payment.ProviderIntentID))
	require.NoError(t, svc.HandleWebhook(ctx, body, payments.SignPayload(webhookSecret, body, time.Now())))

	payment, err := svc.Get(ctx, resp.Payment.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, "card declined", *payment.FailureReason)
	assert.False(t, payment.IsValidForVerification())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubProvider{})
	ctx := context.Background()

	body := succeededEvent("pi_whatever")

	err := svc.HandleWebhook(ctx, body, "")
	assert.ErrorIs(t, err, payments.ErrMissingSignature)

	err = svc.HandleWebhook(ctx, body, "t=123,v1=deadbeef")
	assert.ErrorIs(t, err, payments.ErrStaleSignature)

	// Valid timestamp, wrong secret
	header := payments.SignPayload("whsec_other", body, time.Now())
	err = svc.HandleWebhook(ctx, body, header)
	assert.ErrorIs(t, err, payments.ErrBadSignature)
}

func TestWebhookUnknownIntentIgnored(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubProvider{})

	body := succeededEvent("pi_unknown")
	header := payments.SignPayload(webhookSecret, body, time.Now())
	assert.NoError(t, svc.HandleWebhook(context.Background(), body, header))
}

func TestVerifySignatureTolerance(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()

	header := payments.SignPayload(webhookSecret, body, now.Add(-4*time.Minute))
	assert.NoError(t, payments.VerifySignature(webhookSecret, body, header, now))

	header = payments.SignPayload(webhookSecret, body, now.Add(-6*time.Minute))
	assert.ErrorIs(t, payments.VerifySignature(webhookSecret, body, header, now), payments.ErrStaleSignature)

	// Tampered body
	header = payments.SignPayload(webhookSecret, body, now)
	assert.ErrorIs(t, payments.VerifySignature(webhookSecret, []byte(`{"a":1}`), header, now), payments.ErrBadSignature)
}

func TestRefund(t *testing.T) {
	db := setupTestDB(t)
	provider := &stubProvider{}
	svc := newTestService(t, db, provider)
	ctx := context.Background()
	userID := uuid.New()

	resp, err := svc.CreateIntent(ctx, userID, models.PaymentTypeStandard)
	require.NoError(t, err)

	// Pending payments cannot be refunded
	_, err = svc.Refund(ctx, resp.Payment.ID)
	assert.ErrorIs(t, err, payments.ErrNotRefundable)

	body := succeededEvent(*resp.Payment.ProviderIntentID)
	require.NoError(t, svc.HandleWebhook(ctx, body, payments.SignPayload(webhookSecret, body, time.Now())))

	refunded, err := svc.Refund(ctx, resp.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)
	assert.NotNil(t, refunded.RefundedAt)
	assert.Equal(t, []string{"pi_test_1"}, provider.refunds)

	// Refunded payments no longer unlock uploads
	assert.False(t, refunded.IsValidForVerification())

	_, err = svc.Refund(ctx, resp.Payment.ID)
	assert.ErrorIs(t, err, payments.ErrNotRefundable)

	_, err = svc.Refund(ctx, uuid.New())
	assert.ErrorIs(t, err, payments.ErrPaymentNotFound)
}

func TestStatusAndOwnership(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &stubProvider{})
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	status, err := svc.Status(ctx, owner)
	require.NoError(t, err)
	assert.False(t, status.HasValidPayment)
	assert.Nil(t, status.LatestPayment)

	resp, err := svc.CreateIntent(ctx, owner, models.PaymentTypeStandard)
	require.NoError(t, err)

	_, err = svc.Get(ctx, resp.Payment.ID, stranger)
	assert.ErrorIs(t, err, payments.ErrNotOwner)

	body := succeededEvent(*resp.Payment.ProviderIntentID)
	require.NoError(t, svc.HandleWebhook(ctx, body, payments.SignPayload(webhookSecret, body, time.Now())))

	status, err = svc.Status(ctx, owner)
	require.NoError(t, err)
	assert.True(t, status.HasValidPayment)
	require.NotNil(t, status.LatestPayment)
	assert.Equal(t, models.PaymentStatusCompleted, status.LatestPayment.Status)
}
