package identities

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures authentication routes. The public group carries no
// auth middleware; the protected group must already run AuthMiddleware.
func Routes(public, protected *gin.RouterGroup, svc IdentityService, logger *zap.Logger, rateLimiter gin.HandlerFunc) {
	handler := NewHandler(svc, logger)

	auth := public.Group("/auth")
	if rateLimiter != nil {
		auth.Use(rateLimiter)
	}
	{
		auth.POST("/register", handler.RegisterHandler)
		auth.POST("/login", handler.LoginHandler)
		auth.POST("/login/2fa", handler.Verify2FAHandler)
	}

	me := protected.Group("/auth")
	{
		me.GET("/me", handler.MeHandler)

		twoFA := me.Group("/2fa")
		{
			twoFA.POST("/enable", handler.Enable2FAHandler)
			twoFA.POST("/verify", handler.Verify2FASetupHandler)
			twoFA.POST("/disable", handler.Disable2FAHandler)
		}
	}
}
