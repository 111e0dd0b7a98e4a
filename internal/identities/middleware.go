package identities

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// ContextUserKey is the gin context key holding the authenticated user ID
const ContextUserKey = "userID"

// CurrentUserID extracts the authenticated user ID set by AuthMiddleware
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(ContextUserKey)
	if !exists {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// AuthMiddleware validates the bearer token, rejects disabled accounts
// and stores the user ID in the request context.
func AuthMiddleware(svc IdentityService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "MISSING_TOKEN",
				"message": "Authorization header required",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "INVALID_AUTH_FORMAT",
				"message": "Authorization header must be a bearer token",
			})
			return
		}

		userID, err := svc.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "INVALID_TOKEN",
				"message": "Token is invalid or expired",
			})
			return
		}

		user, err := svc.GetUser(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "UNKNOWN_USER",
				"message": "Token subject no longer exists",
			})
			return
		}
		if user.Status == models.UserStatusSuspended || user.Status == models.UserStatusBanned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "ACCOUNT_DISABLED",
				"message": "Account is suspended or banned",
			})
			return
		}

		svc.TouchLastActive(c.Request.Context(), userID)

		c.Set(ContextUserKey, userID.String())
		c.Next()
	}
}

// AdminMiddleware requires the authenticated user to be an admin.
// Must run after AuthMiddleware.
func AdminMiddleware(svc IdentityService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "NOT_AUTHENTICATED",
				"message": "Authentication required",
			})
			return
		}

		isAdmin, err := svc.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Failed to check admin role", zap.Error(err), zap.String("user_id", userID.String()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "ROLE_CHECK_FAILED",
				"message": "Failed to check permissions",
			})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "ADMIN_REQUIRED",
				"message": "Admin privileges required",
			})
			return
		}

		c.Next()
	}
}
