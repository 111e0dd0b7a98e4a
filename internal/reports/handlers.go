package reports

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
)

// Handler provides HTTP handlers for report operations
type Handler struct {
	service ReportService
	logger  *zap.Logger
}

// NewHandler creates a new reports handler
func NewHandler(service ReportService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// CreateHandler files a complaint about another user
func (h *Handler) CreateHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	report, err := h.service.Create(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfReport):
			c.JSON(http.StatusBadRequest, gin.H{"error": "SELF_REPORT", "message": "Cannot report yourself"})
		case errors.Is(err, ErrTargetNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND", "message": "Reported user not found"})
		case errors.Is(err, ErrDuplicateReport):
			c.JSON(http.StatusConflict, gin.H{"error": "DUPLICATE_REPORT", "message": "A pending report for this user already exists"})
		default:
			h.logger.Error("Failed to file report", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "REPORT_FAILED", "message": "Failed to file report"})
		}
		return
	}

	c.JSON(http.StatusCreated, report)
}
