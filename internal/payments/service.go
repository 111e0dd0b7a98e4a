package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/internal/events"
	"github.com/nikohapp/nikoh-api/pkg/metrics"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Payment errors
var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrNotOwner           = errors.New("payment belongs to another user")
	ErrInvalidPaymentType = errors.New("invalid payment type")
	ErrProviderDisabled   = errors.New("payment provider is not configured")
	ErrNotRefundable      = errors.New("only completed payments can be refunded")
)

// Pricing describes the verification fees offered to clients
type Pricing struct {
	Currency string          `json:"currency"`
	Options  []PricingOption `json:"options"`
}

// PricingOption is one purchasable verification tier
type PricingOption struct {
	PaymentType string `json:"payment_type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// PriceTable maps payment types to amounts in minor units
type PriceTable struct {
	Currency      string
	StandardPrice int64
	PriorityPrice int64
	RenewalPrice  int64
}

// IntentResponse is returned after creating a payment intent
type IntentResponse struct {
	Payment        *models.Payment `json:"payment"`
	ClientSecret   string          `json:"client_secret"`
	PublishableKey string          `json:"publishable_key,omitempty"`
}

// PaymentStatus is the caller-facing payment state
type PaymentStatus struct {
	HasValidPayment bool            `json:"has_valid_payment"`
	LatestPayment   *models.Payment `json:"latest_payment,omitempty"`
}

// PaymentService manages verification fee payments
type PaymentService interface {
	Start() error
	Stop() error
	Pricing() Pricing
	CreateIntent(ctx context.Context, userID uuid.UUID, paymentType string) (*IntentResponse, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Payment, error)
	Status(ctx context.Context, userID uuid.UUID) (*PaymentStatus, error)
	HandleWebhook(ctx context.Context, body []byte, signatureHeader string) error
	Refund(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
}

// Service implements PaymentService
type Service struct {
	logger         *zap.Logger
	db             *gorm.DB
	provider       IntentProvider
	bus            events.Bus
	prices         PriceTable
	publishableKey string
	webhookSecret  string
}

// NewService creates a new payment service. provider may be nil, in
// which case intent creation is refused.
func NewService(logger *zap.Logger, db *gorm.DB, provider IntentProvider, bus events.Bus, prices PriceTable, publishableKey, webhookSecret string) (PaymentService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if bus == nil {
		bus = events.NewNopBus()
	}
	return &Service{
		logger:         logger,
		db:             db,
		provider:       provider,
		bus:            bus,
		prices:         prices,
		publishableKey: publishableKey,
		webhookSecret:  webhookSecret,
	}, nil
}

// Start starts the payment service
func (s *Service) Start() error {
	s.logger.Info("Payment service started")
	return nil
}

// Stop stops the payment service
func (s *Service) Stop() error {
	s.logger.Info("Payment service stopped")
	return nil
}

// Pricing returns the configured fee schedule
func (s *Service) Pricing() Pricing {
	return Pricing{
		Currency: s.prices.Currency,
		Options: []PricingOption{
			{PaymentType: models.PaymentTypeStandard, Amount: s.prices.StandardPrice, Description: "Standard verification"},
			{PaymentType: models.PaymentTypePriority, Amount: s.prices.PriorityPrice, Description: "Priority verification"},
			{PaymentType: models.PaymentTypeRenewal, Amount: s.prices.RenewalPrice, Description: "Verification renewal"},
		},
	}
}

func (s *Service) amountFor(paymentType string) (int64, string, error) {
	switch paymentType {
	case models.PaymentTypeStandard:
		return s.prices.StandardPrice, "Standard verification", nil
	case models.PaymentTypePriority:
		return s.prices.PriorityPrice, "Priority verification", nil
	case models.PaymentTypeRenewal:
		return s.prices.RenewalPrice, "Verification renewal", nil
	}
	return 0, "", ErrInvalidPaymentType
}

// CreateIntent opens a payment intent with the provider and records a
// pending payment
func (s *Service) CreateIntent(ctx context.Context, userID uuid.UUID, paymentType string) (*IntentResponse, error) {
	if s.provider == nil {
		return nil, ErrProviderDisabled
	}
	amount, description, err := s.amountFor(paymentType)
	if err != nil {
		return nil, err
	}

	intentID, clientSecret, err := s.provider.CreateIntent(ctx, amount, s.prices.Currency, description, map[string]string{
		"user_id":      userID.String(),
		"payment_type": paymentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	payment := &models.Payment{
		ID:               uuid.New(),
		UserID:           userID,
		ProviderIntentID: &intentID,
		PaymentType:      paymentType,
		Status:           models.PaymentStatusPending,
		Amount:           amount,
		Currency:         s.prices.Currency,
		Description:      description,
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}

	s.logger.Info("Payment intent created",
		zap.String("user_id", userID.String()),
		zap.String("payment_type", paymentType),
		zap.Int64("amount", amount))

	return &IntentResponse{Payment: payment, ClientSecret: clientSecret, PublishableKey: s.publishableKey}, nil
}

// List returns the user's payments, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var list []models.Payment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return list, nil
}

// Get returns one payment for its owner
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Payment, error) {
	payment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrNotOwner
	}
	return payment, nil
}

// Status reports whether the user holds a payment that can unlock a
// verification upload
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*PaymentStatus, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := &PaymentStatus{}
	if len(list) > 0 {
		status.LatestPayment = &list[0]
	}
	for i := range list {
		if list[i].IsValidForVerification() {
			status.HasValidPayment = true
			break
		}
	}
	return status, nil
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string `json:"id"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// HandleWebhook verifies and applies a provider event. Events for
// unknown intents and repeated deliveries are ignored.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signatureHeader string) error {
	if err := VerifySignature(s.webhookSecret, body, signatureHeader, time.Now()); err != nil {
		return err
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode webhook event: %w", err)
	}
	if event.Data.Object.ID == "" {
		return nil
	}

	var payment models.Payment
	err := s.db.WithContext(ctx).First(&payment, "provider_intent_id = ?", event.Data.Object.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("Webhook for unknown payment intent", zap.String("intent_id", event.Data.Object.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		if payment.Status == models.PaymentStatusCompleted {
			return nil
		}
		now := time.Now()
		payment.Status = models.PaymentStatusCompleted
		payment.CompletedAt = &now
		payment.FailureReason = nil
		if err := s.db.WithContext(ctx).Save(&payment).Error; err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		metrics.PaymentsTotal.WithLabelValues(models.PaymentStatusCompleted).Inc()
		if err := s.bus.Publish(ctx, events.PaymentCompleted, map[string]interface{}{
			"payment_id":   payment.ID,
			"user_id":      payment.UserID,
			"payment_type": payment.PaymentType,
			"amount":       payment.Amount,
		}); err != nil {
			s.logger.Warn("Failed to publish payment event", zap.Error(err))
		}
		s.logger.Info("Payment completed", zap.String("payment_id", payment.ID.String()))

	case "payment_intent.payment_failed":
		if payment.Status == models.PaymentStatusCompleted || payment.Status == models.PaymentStatusFailed {
			return nil
		}
		payment.Status = models.PaymentStatusFailed
		if event.Data.Object.LastPaymentError != nil {
			payment.FailureReason = &event.Data.Object.LastPaymentError.Message
		}
		if err := s.db.WithContext(ctx).Save(&payment).Error; err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		metrics.PaymentsTotal.WithLabelValues(models.PaymentStatusFailed).Inc()
		s.logger.Info("Payment failed", zap.String("payment_id", payment.ID.String()))
	}

	return nil
}

// Refund refunds a completed payment through the provider
func (s *Service) Refund(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, ErrNotRefundable
	}

	if s.provider != nil && payment.ProviderIntentID != nil {
		if err := s.provider.Refund(ctx, *payment.ProviderIntentID); err != nil {
			return nil, fmt.Errorf("provider refund failed: %w", err)
		}
	}

	now := time.Now()
	payment.Status = models.PaymentStatusRefunded
	payment.RefundedAt = &now
	if err := s.db.WithContext(ctx).Save(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to mark payment refunded: %w", err)
	}
	metrics.PaymentsTotal.WithLabelValues(models.PaymentStatusRefunded).Inc()
	s.logger.Info("Payment refunded", zap.String("payment_id", payment.ID.String()))
	return payment, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &payment, nil
}
