package payments

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures payment routes. The webhook endpoint is public;
// its authentication is the provider signature.
func Routes(public, protected *gin.RouterGroup, svc PaymentService, logger *zap.Logger) {
	handler := NewHandler(svc, logger)

	public.GET("/payments/pricing", handler.PricingHandler)
	public.POST("/payments/webhook", handler.WebhookHandler)

	group := protected.Group("/payments")
	{
		group.POST("/create-intent", handler.CreateIntentHandler)
		group.POST("/intents", handler.CreateIntentHandler) // legacy alias
		group.GET("", handler.ListHandler)
		group.GET("/status", handler.StatusHandler)
		group.GET("/:id", handler.GetHandler)
	}
}
