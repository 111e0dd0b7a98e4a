package reports

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes configures report routes on an authenticated router group.
// Admin review endpoints are wired by the admin module.
func Routes(protected *gin.RouterGroup, svc ReportService, logger *zap.Logger) {
	handler := NewHandler(svc, logger)

	protected.POST("/reports", handler.CreateHandler)
}
