package verifications

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures verification and selfie routes on an
// authenticated router group
func Routes(protected *gin.RouterGroup, svc VerificationService, logger *zap.Logger) {
	handler := NewHandler(svc, logger)

	group := protected.Group("/verifications")
	{
		group.POST("/upload", handler.SubmitHandler)
		group.GET("", handler.ListHandler)
		group.GET("/status", handler.SummaryHandler)

		selfie := group.Group("/selfie")
		{
			selfie.POST("", handler.UploadSelfieHandler)
			selfie.GET("", handler.GetSelfieHandler)
			selfie.GET("/status", handler.SelfieStatusHandler)
			selfie.DELETE("", handler.DeleteSelfieHandler)
		}

		group.GET("/:id", handler.GetHandler)
		group.POST("/:id/cancel", handler.CancelHandler)
	}
}
