package messages

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures chat routes on an authenticated router group.
// Per-match endpoints hang off /matches/:id to mirror the match routes.
func Routes(protected *gin.RouterGroup, svc MessageService, hub *Hub, logger *zap.Logger) {
	handler := NewHandler(svc, hub, logger)

	protected.GET("/matches/:id/messages", handler.ListHandler)
	protected.POST("/matches/:id/messages", handler.SendHandler)
	protected.POST("/matches/:id/messages/read", handler.MarkReadHandler)

	group := protected.Group("/messages")
	{
		group.GET("/unread-count", handler.UnreadCountHandler)
		group.GET("/previews", handler.PreviewsHandler)
	}

	protected.GET("/ws/chat", handler.WSHandler)
}
