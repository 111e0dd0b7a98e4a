package interests

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Handler provides HTTP handlers for interest operations
type Handler struct {
	service InterestService
	logger  *zap.Logger
}

// NewHandler creates a new interests handler
func NewHandler(service InterestService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func pagination(c *gin.Context) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	perPage := 20
	if pp, err := strconv.Atoi(c.Query("per_page")); err == nil && pp > 0 && pp <= 100 {
		perPage = pp
	}
	return page, perPage
}

// CreateHandler sends an interest to another user
func (h *Handler) CreateHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	var req struct {
		ToUserID uuid.UUID `json:"to_user_id" binding:"required"`
		Message  *string   `json:"message" binding:"omitempty,max=200"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": "Invalid interest payload",
			"details": err.Error(),
		})
		return
	}

	interest, err := h.service.Create(c.Request.Context(), userID, req.ToUserID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfInterest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "SELF_INTEREST", "message": "Cannot send interest to yourself"})
		case errors.Is(err, ErrTargetNotVisible):
			c.JSON(http.StatusNotFound, gin.H{"error": "TARGET_NOT_FOUND", "message": "Target profile not found"})
		case errors.Is(err, ErrDuplicateInterest):
			c.JSON(http.StatusConflict, gin.H{"error": "DUPLICATE_INTEREST", "message": "A pending interest already exists"})
		case errors.Is(err, ErrAlreadyMatched):
			c.JSON(http.StatusConflict, gin.H{"error": "ALREADY_MATCHED", "message": "You are already matched with this user"})
		default:
			h.logger.Error("Failed to create interest", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "CREATE_FAILED", "message": "Failed to send interest"})
		}
		return
	}

	c.JSON(http.StatusCreated, interest)
}

type listFunc func(ctx context.Context, userID uuid.UUID, status string, page, perPage int) ([]models.InterestWithProfile, int64, error)

func (h *Handler) list(c *gin.Context, list listFunc) {
	userID, _ := identities.CurrentUserID(c)
	page, perPage := pagination(c)
	status := c.Query("status")

	interests, total, err := list(c.Request.Context(), userID, status, page, perPage)
	if err != nil {
		h.logger.Error("Failed to list interests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to list interests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interests": interests,
		"pagination": gin.H{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}

// ListReceivedHandler lists interests received by the caller
func (h *Handler) ListReceivedHandler(c *gin.Context) {
	h.list(c, h.service.ListReceived)
}

// ListSentHandler lists interests sent by the caller
func (h *Handler) ListSentHandler(c *gin.Context) {
	h.list(c, h.service.ListSent)
}

// RespondHandler accepts or declines a pending interest
func (h *Handler) RespondHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	interestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INTEREST_ID", "message": "Invalid interest ID format"})
		return
	}

	var req struct {
		Action string `json:"action" binding:"required,oneof=accept decline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": "action must be accept or decline",
		})
		return
	}

	interest, match, err := h.service.Respond(c.Request.Context(), interestID, userID, req.Action == "accept")
	if err != nil {
		switch {
		case errors.Is(err, ErrInterestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "INTEREST_NOT_FOUND", "message": "Interest not found"})
		case errors.Is(err, ErrNotRecipient):
			c.JSON(http.StatusForbidden, gin.H{"error": "NOT_RECIPIENT", "message": "Only the recipient can respond"})
		case errors.Is(err, ErrInterestNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "NOT_PENDING", "message": "Interest is no longer pending"})
		default:
			h.logger.Error("Failed to respond to interest", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "RESPOND_FAILED", "message": "Failed to respond to interest"})
		}
		return
	}

	resp := gin.H{"interest": interest}
	if match != nil {
		resp["match"] = match
	}
	c.JSON(http.StatusOK, resp)
}

// CancelHandler withdraws a pending interest sent by the caller
func (h *Handler) CancelHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	interestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INTEREST_ID", "message": "Invalid interest ID format"})
		return
	}

	if err := h.service.Cancel(c.Request.Context(), interestID, userID); err != nil {
		switch {
		case errors.Is(err, ErrInterestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "INTEREST_NOT_FOUND", "message": "Interest not found"})
		case errors.Is(err, ErrNotSender):
			c.JSON(http.StatusForbidden, gin.H{"error": "NOT_SENDER", "message": "Only the sender can cancel"})
		case errors.Is(err, ErrInterestNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "NOT_PENDING", "message": "Interest is no longer pending"})
		default:
			h.logger.Error("Failed to cancel interest", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "CANCEL_FAILED", "message": "Failed to cancel interest"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
