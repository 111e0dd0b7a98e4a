package messages

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
)

// Handler provides HTTP handlers for chat operations
type Handler struct {
	service MessageService
	hub     *Hub
	logger  *zap.Logger
}

// NewHandler creates a new messages handler
func NewHandler(service MessageService, hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{service: service, hub: hub, logger: logger}
}

// SendRequest is the body of a send-message call
type SendRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

func matchParam(c *gin.Context) (uuid.UUID, bool) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_MATCH_ID", "message": "Invalid match ID format"})
		return uuid.Nil, false
	}
	return matchID, true
}

func (h *Handler) respondMatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "MATCH_NOT_FOUND", "message": "Match not found"})
	case errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "NOT_PARTICIPANT", "message": "Not a participant of this match"})
	case errors.Is(err, ErrMatchNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": "MATCH_NOT_ACTIVE", "message": "Match is not active"})
	default:
		h.logger.Error("Chat operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "CHAT_FAILED", "message": "Chat operation failed"})
	}
}

// ListHandler returns the messages of a match
func (h *Handler) ListHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	perPage := 50
	if pp, err := strconv.Atoi(c.Query("per_page")); err == nil && pp > 0 && pp <= 200 {
		perPage = pp
	}

	msgs, total, err := h.service.List(c.Request.Context(), matchID, userID, page, perPage)
	if err != nil {
		h.respondMatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"pagination": gin.H{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}

// SendHandler stores a new message in a match
func (h *Handler) SendHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), matchID, userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "EMPTY_MESSAGE", "message": "Message content is empty"})
		case errors.Is(err, ErrMessageTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "MESSAGE_TOO_LONG", "message": "Message content exceeds 2000 characters"})
		default:
			h.respondMatchError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// MarkReadHandler marks all messages addressed to the caller as read
func (h *Handler) MarkReadHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(c.Request.Context(), matchID, userID)
	if err != nil {
		h.respondMatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked_read": updated})
}

// UnreadCountHandler returns the caller's total unread message count
func (h *Handler) UnreadCountHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to count unread messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// PreviewsHandler returns one conversation preview per active match
func (h *Handler) PreviewsHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	previews, err := h.service.Previews(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to build chat previews", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to build chat previews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": previews})
}

// WSHandler upgrades the connection to a WebSocket for live chat events
func (h *Handler) WSHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WS_UNAVAILABLE", "message": "Live chat is not available"})
		return
	}
	h.hub.ServeWS(c.Writer, c.Request, userID)
}
