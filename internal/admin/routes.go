package admin

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/payments"
	"github.com/nikohapp/nikoh-api/internal/reports"
	"github.com/nikohapp/nikoh-api/internal/verifications"
)

// Routes configures the admin console endpoints. The group must carry
// both the auth and the admin middleware.
func Routes(adminGroup *gin.RouterGroup, svc AdminService, verificationSvc verifications.VerificationService, reportSvc reports.ReportService, paymentSvc payments.PaymentService, logger *zap.Logger) {
	handler := NewHandler(svc, verificationSvc, reportSvc, paymentSvc, logger)

	adminGroup.GET("/stats", handler.StatsHandler)

	users := adminGroup.Group("/users")
	{
		users.GET("", handler.SearchUsersHandler)
		users.GET("/:id", handler.GetUserHandler)
		users.POST("/:id/ban", handler.BanUserHandler)
		users.POST("/:id/unban", handler.UnbanUserHandler)
	}

	verificationRoutes := adminGroup.Group("/verifications")
	{
		verificationRoutes.GET("/pending", handler.PendingVerificationsHandler)
		verificationRoutes.GET("/:id", handler.GetVerificationHandler)
		verificationRoutes.POST("/:id/approve", handler.ApproveVerificationHandler)
		verificationRoutes.POST("/:id/reject", handler.RejectVerificationHandler)
		verificationRoutes.POST("/:id/run-ocr", handler.RunOCRHandler)
	}

	reportRoutes := adminGroup.Group("/reports")
	{
		reportRoutes.GET("", handler.ListReportsHandler)
		reportRoutes.GET("/:id", handler.GetReportHandler)
		reportRoutes.POST("/:id/review", handler.ReviewReportHandler)
	}

	adminGroup.POST("/payments/:id/refund", handler.RefundPaymentHandler)
}
