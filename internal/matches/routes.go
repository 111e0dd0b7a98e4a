package matches

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures match routes on an authenticated router group.
// The compatibility endpoint lives under /profiles because it scores a
// profile, not a match.
func Routes(protected *gin.RouterGroup, svc MatchService, logger *zap.Logger) {
	handler := NewHandler(svc, logger)

	group := protected.Group("/matches")
	{
		group.GET("", handler.ListHandler)
		group.GET("/suggestions", handler.SuggestionsHandler)
		group.GET("/who-likes-me", handler.WhoLikesMeHandler)
		group.GET("/:id", handler.GetHandler)
		group.POST("/:id/unmatch", handler.UnmatchHandler)
	}

	protected.GET("/profiles/:user_id/compatibility", handler.CompatibilityHandler)
}
