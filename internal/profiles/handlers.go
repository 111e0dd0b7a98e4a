package profiles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
)

// Handler provides HTTP handlers for profile operations
type Handler struct {
	service ProfileService
	logger  *zap.Logger
}

// NewHandler creates a new profiles handler
func NewHandler(service ProfileService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// CreateHandler creates the caller's profile
func (h *Handler) CreateHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": "Invalid profile payload",
			"details": err.Error(),
		})
		return
	}

	profile, err := h.service.Create(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrProfileExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "PROFILE_EXISTS", "message": "Profile already exists"})
			return
		}
		h.logger.Error("Failed to create profile", zap.Error(err), zap.String("user_id", userID.String()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "CREATE_FAILED", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, profile)
}

// GetMineHandler returns the caller's own profile
func (h *Handler) GetMineHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	profile, err := h.service.GetByUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "PROFILE_NOT_FOUND", "message": "Profile not found"})
			return
		}
		h.logger.Error("Failed to load profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateMineHandler updates the caller's own profile
func (h *Handler) UpdateMineHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": "Invalid profile payload",
			"details": err.Error(),
		})
		return
	}

	profile, err := h.service.Update(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "PROFILE_NOT_FOUND", "message": "Profile not found"})
			return
		}
		h.logger.Error("Failed to update profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "UPDATE_FAILED", "message": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetByUserHandler returns another user's profile. Hidden profiles 404
// for everyone except their owner.
func (h *Handler) GetByUserHandler(c *gin.Context) {
	viewerID, _ := identities.CurrentUserID(c)

	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_USER_ID", "message": "Invalid user ID format"})
		return
	}

	profile, err := h.service.GetForViewer(c.Request.Context(), targetID, viewerID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "PROFILE_NOT_FOUND", "message": "Profile not found"})
			return
		}
		h.logger.Error("Failed to load profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// SearchHandler searches visible profiles
func (h *Handler) SearchHandler(c *gin.Context) {
	viewerID, _ := identities.CurrentUserID(c)

	var filter SearchFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": "Invalid search filter",
			"details": err.Error(),
		})
		return
	}

	results, total, err := h.service.Search(c.Request.Context(), viewerID, &filter)
	if err != nil {
		h.logger.Error("Profile search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SEARCH_FAILED", "message": "Failed to search profiles"})
		return
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"pagination": gin.H{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}
