package preferences

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
)

// Handler provides HTTP handlers for preference operations
type Handler struct {
	service PreferenceService
	logger  *zap.Logger
}

// NewHandler creates a new preferences handler
func NewHandler(service PreferenceService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// GetHandler returns the caller's saved preferences
func (h *Handler) GetHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	prefs, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrPreferencesNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "PREFERENCES_NOT_SET", "message": "Search preferences have not been set"})
			return
		}
		h.logger.Error("Failed to load preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load preferences"})
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpsertHandler creates or updates the caller's preferences
func (h *Handler) UpsertHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	prefs, err := h.service.Upsert(c.Request.Context(), userID, &req)
	if err != nil {
		h.logger.Error("Failed to save preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SAVE_FAILED", "message": "Failed to save preferences"})
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// DeleteHandler removes the caller's preferences
func (h *Handler) DeleteHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	if err := h.service.Delete(c.Request.Context(), userID); err != nil {
		if errors.Is(err, ErrPreferencesNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "PREFERENCES_NOT_SET", "message": "Search preferences have not been set"})
			return
		}
		h.logger.Error("Failed to delete preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DELETE_FAILED", "message": "Failed to delete preferences"})
		return
	}

	c.Status(http.StatusNoContent)
}

// DefaultsHandler returns the default preference values
func (h *Handler) DefaultsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Defaults())
}
