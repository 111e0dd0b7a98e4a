package payments

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
)

// Handler provides HTTP handlers for payment operations
type Handler struct {
	service PaymentService
	logger  *zap.Logger
}

// NewHandler creates a new payments handler
func NewHandler(service PaymentService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// IntentRequest is the body of a create-intent call
type IntentRequest struct {
	PaymentType string `json:"payment_type" binding:"required,oneof=standard_verification priority_verification renewal_verification"`
}

// PricingHandler returns the fee schedule
func (h *Handler) PricingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Pricing())
}

// CreateIntentHandler opens a payment intent for the caller
func (h *Handler) CreateIntentHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	var req IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	intent, err := h.service.CreateIntent(c.Request.Context(), userID, req.PaymentType)
	if err != nil {
		switch {
		case errors.Is(err, ErrProviderDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PAYMENTS_UNAVAILABLE", "message": "Payments are not configured"})
		case errors.Is(err, ErrInvalidPaymentType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_PAYMENT_TYPE", "message": "Invalid payment type"})
		default:
			h.logger.Error("Failed to create payment intent", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTENT_FAILED", "message": "Failed to create payment intent"})
		}
		return
	}

	c.JSON(http.StatusCreated, intent)
}

// ListHandler returns the caller's payments
func (h *Handler) ListHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	list, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list payments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to list payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": list})
}

// StatusHandler reports whether the caller can upload a document
func (h *Handler) StatusHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	status, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load payment status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load payment status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetHandler returns one payment for its owner
func (h *Handler) GetHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_PAYMENT_ID", "message": "Invalid payment ID format"})
		return
	}

	payment, err := h.service.Get(c.Request.Context(), paymentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "PAYMENT_NOT_FOUND", "message": "Payment not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "NOT_OWNER", "message": "Payment belongs to another user"})
		default:
			h.logger.Error("Failed to load payment", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load payment"})
		}
		return
	}

	c.JSON(http.StatusOK, payment)
}

// WebhookHandler applies a signed provider event. The body must be
// read raw because the signature covers the exact bytes.
func (h *Handler) WebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_BODY", "message": "Could not read request body"})
		return
	}

	err = h.service.HandleWebhook(c.Request.Context(), body, c.GetHeader("Webhook-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingSignature), errors.Is(err, ErrBadSignature), errors.Is(err, ErrStaleSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_SIGNATURE", "message": "Webhook signature verification failed"})
		default:
			h.logger.Error("Failed to handle webhook", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "WEBHOOK_FAILED", "message": "Failed to handle webhook"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
