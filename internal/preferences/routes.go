package preferences

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures preference routes on an authenticated router group
func Routes(protected *gin.RouterGroup, svc PreferenceService, logger *zap.Logger) {
	handler := NewHandler(svc, logger)

	group := protected.Group("/preferences")
	{
		group.GET("", handler.GetHandler)
		group.POST("", handler.UpsertHandler)
		group.PUT("", handler.UpsertHandler) // legacy alias
		group.DELETE("", handler.DeleteHandler)
		group.GET("/defaults", handler.DefaultsHandler)
	}
}
