package identities

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Handler provides HTTP handlers for authentication
type Handler struct {
	service IdentityService
	logger  *zap.Logger
}

// NewHandler creates a new identities handler
func NewHandler(service IdentityService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func traceID(c *gin.Context) string {
	id := c.GetHeader("X-Trace-ID")
	if id == "" {
		id = uuid.New().String()
		c.Header("X-Trace-ID", id)
	}
	return id
}

// RegisterHandler creates a new user account
func (h *Handler) RegisterHandler(c *gin.Context) {
	trace := traceID(c)

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "INVALID_REQUEST",
			"message":  "Invalid registration payload",
			"details":  err.Error(),
			"trace_id": trace,
		})
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "EMAIL_TAKEN",
				"message":  "Email already registered",
				"trace_id": trace,
			})
		case errors.Is(err, ErrPhoneTaken):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "PHONE_TAKEN",
				"message":  "Phone already registered",
				"trace_id": trace,
			})
		default:
			h.logger.Error("Registration failed", zap.Error(err), zap.String("trace_id", trace))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    "REGISTRATION_FAILED",
				"message":  "Failed to register user",
				"trace_id": trace,
			})
		}
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	c.JSON(http.StatusCreated, user)
}

// LoginHandler authenticates with form-encoded username/password and
// returns a bearer token.
func (h *Handler) LoginHandler(c *gin.Context) {
	trace := traceID(c)

	login := c.PostForm("username")
	password := c.PostForm("password")
	if login == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "INVALID_REQUEST",
			"message":  "username and password form fields are required",
			"trace_id": trace,
		})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), login, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":    "INVALID_CREDENTIALS",
				"message":  "Incorrect email or password",
				"trace_id": trace,
			})
		case errors.Is(err, ErrAccountDisabled):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":    "ACCOUNT_DISABLED",
				"message":  "Account is suspended or banned",
				"trace_id": trace,
			})
		default:
			h.logger.Error("Login failed", zap.Error(err), zap.String("trace_id", trace))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    "LOGIN_FAILED",
				"message":  "Failed to log in",
				"trace_id": trace,
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Verify2FAHandler completes a login that required a TOTP code
func (h *Handler) Verify2FAHandler(c *gin.Context) {
	trace := traceID(c)

	var req struct {
		UserID uuid.UUID `json:"user_id" binding:"required"`
		Code   string    `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "INVALID_REQUEST",
			"message":  "user_id and 6-digit code are required",
			"trace_id": trace,
		})
		return
	}

	resp, err := h.service.Verify2FA(c.Request.Context(), req.UserID, req.Code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":    "INVALID_2FA",
			"message":  "Invalid 2FA code",
			"trace_id": trace,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MeHandler returns the current authenticated user
func (h *Handler) MeHandler(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "NOT_AUTHENTICATED", "message": "Authentication required"})
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND", "message": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Enable2FAHandler generates a TOTP secret for the current user
func (h *Handler) Enable2FAHandler(c *gin.Context) {
	userID, _ := CurrentUserID(c)

	secret, url, err := h.service.Enable2FA(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, Err2FAAlreadyEnabled) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "2FA_ALREADY_ENABLED", "message": "2FA already enabled"})
			return
		}
		h.logger.Error("Failed to enable 2FA", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "2FA_SETUP_FAILED", "message": "Failed to set up 2FA"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

// Verify2FASetupHandler activates 2FA after validating a code
func (h *Handler) Verify2FASetupHandler(c *gin.Context) {
	userID, _ := CurrentUserID(c)

	var req struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "6-digit code is required"})
		return
	}

	if err := h.service.Verify2FASetup(c.Request.Context(), userID, req.Code); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_2FA", "message": "Invalid 2FA code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "2FA enabled"})
}

// Disable2FAHandler deactivates 2FA after validating a code
func (h *Handler) Disable2FAHandler(c *gin.Context) {
	userID, _ := CurrentUserID(c)

	var req struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "6-digit code is required"})
		return
	}

	if err := h.service.Disable2FA(c.Request.Context(), userID, req.Code); err != nil {
		if errors.Is(err, Err2FANotEnabled) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "2FA_NOT_ENABLED", "message": "2FA is not enabled"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_2FA", "message": "Invalid 2FA code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "2FA disabled"})
}
