package profiles

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures profile routes on an authenticated router group
func Routes(protected *gin.RouterGroup, svc ProfileService, logger *zap.Logger) {
	handler := NewHandler(svc, logger)

	group := protected.Group("/profiles")
	{
		group.POST("", handler.CreateHandler)
		group.GET("/me", handler.GetMineHandler)
		group.PUT("/me", handler.UpdateMineHandler)
		group.POST("/search", handler.SearchHandler)
		group.GET("/:user_id", handler.GetByUserHandler)
	}
}
