package interests

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures interest routes on an authenticated router group
func Routes(protected *gin.RouterGroup, svc InterestService, logger *zap.Logger) {
	handler := NewHandler(svc, logger)

	group := protected.Group("/interests")
	{
		group.POST("", handler.CreateHandler)
		group.GET("/received", handler.ListReceivedHandler)
		group.GET("/sent", handler.ListSentHandler)
		group.POST("/:id/respond", handler.RespondHandler)
		group.DELETE("/:id", handler.CancelHandler)
	}
}
