package matches

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
)

// Handler provides HTTP handlers for match operations
type Handler struct {
	service MatchService
	logger  *zap.Logger
}

// NewHandler creates a new matches handler
func NewHandler(service MatchService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// ListHandler lists the caller's active matches
func (h *Handler) ListHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	perPage := 20
	if pp, err := strconv.Atoi(c.Query("per_page")); err == nil && pp > 0 && pp <= 100 {
		perPage = pp
	}

	matchList, total, err := h.service.List(c.Request.Context(), userID, page, perPage)
	if err != nil {
		h.logger.Error("Failed to list matches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to list matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matchList,
		"pagination": gin.H{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}

// SuggestionsHandler returns compatibility-ranked candidates
func (h *Handler) SuggestionsHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	limit := 10
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 50 {
		limit = l
	}

	suggestions, total, err := h.service.Suggestions(c.Request.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, ErrNoProfile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "PROFILE_REQUIRED", "message": "Create a profile first"})
			return
		}
		h.logger.Error("Failed to build suggestions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SUGGESTIONS_FAILED", "message": "Failed to build suggestions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "total_available": total})
}

// WhoLikesMeHandler returns users whose preferences match the caller
func (h *Handler) WhoLikesMeHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	result, err := h.service.WhoLikesMe(c.Request.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, ErrNoProfile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "PROFILE_REQUIRED", "message": "Create a profile first"})
			return
		}
		h.logger.Error("Failed to compute who-likes-me", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load results"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHandler returns one match for a participant
func (h *Handler) GetHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_MATCH_ID", "message": "Invalid match ID format"})
		return
	}

	match, err := h.service.Get(c.Request.Context(), matchID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrMatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "MATCH_NOT_FOUND", "message": "Match not found"})
		case errors.Is(err, ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "NOT_PARTICIPANT", "message": "Not a participant of this match"})
		default:
			h.logger.Error("Failed to load match", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load match"})
		}
		return
	}

	c.JSON(http.StatusOK, match)
}

// UnmatchHandler closes an active match
func (h *Handler) UnmatchHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_MATCH_ID", "message": "Invalid match ID format"})
		return
	}

	match, err := h.service.Unmatch(c.Request.Context(), matchID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrMatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "MATCH_NOT_FOUND", "message": "Match not found"})
		case errors.Is(err, ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "NOT_PARTICIPANT", "message": "Not a participant of this match"})
		case errors.Is(err, ErrMatchNotActive):
			c.JSON(http.StatusConflict, gin.H{"error": "MATCH_NOT_ACTIVE", "message": "Match is not active"})
		default:
			h.logger.Error("Failed to unmatch", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "UNMATCH_FAILED", "message": "Failed to unmatch"})
		}
		return
	}

	c.JSON(http.StatusOK, match)
}

// CompatibilityHandler scores a target profile against the caller
func (h *Handler) CompatibilityHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_USER_ID", "message": "Invalid user ID format"})
		return
	}

	compat, err := h.service.Compatibility(c.Request.Context(), userID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, ErrOwnProfile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "OWN_PROFILE", "message": "Cannot score compatibility with yourself"})
		case errors.Is(err, ErrNoProfile):
			c.JSON(http.StatusNotFound, gin.H{"error": "PROFILE_NOT_FOUND", "message": "Profile not found"})
		default:
			h.logger.Error("Failed to compute compatibility", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "COMPATIBILITY_FAILED", "message": "Failed to compute compatibility"})
		}
		return
	}

	c.JSON(http.StatusOK, compat)
}
