package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
	"github.com/nikohapp/nikoh-api/internal/payments"
	"github.com/nikohapp/nikoh-api/internal/reports"
	"github.com/nikohapp/nikoh-api/internal/verifications"
)

// Handler composes the admin-facing operations of the other services
type Handler struct {
	service       AdminService
	verifications verifications.VerificationService
	reports       reports.ReportService
	payments      payments.PaymentService
	logger        *zap.Logger
}

// NewHandler creates a new admin handler
func NewHandler(service AdminService, verificationSvc verifications.VerificationService, reportSvc reports.ReportService, paymentSvc payments.PaymentService, logger *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		verifications: verificationSvc,
		reports:       reportSvc,
		payments:      paymentSvc,
		logger:        logger,
	}
}

func pagination(c *gin.Context) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	perPage := 20
	if pp, err := strconv.Atoi(c.Query("per_page")); err == nil && pp > 0 && pp <= 100 {
		perPage = pp
	}
	return page, perPage
}

func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_ID", "message": "Invalid ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// StatsHandler returns platform counters
func (h *Handler) StatsHandler(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to aggregate stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STATS_FAILED", "message": "Failed to aggregate stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SearchUsersHandler lists users for the admin console
func (h *Handler) SearchUsersHandler(c *gin.Context) {
	page, perPage := pagination(c)
	filter := UserFilter{
		Query:              c.Query("q"),
		Status:             c.Query("status"),
		VerificationStatus: c.Query("verification_status"),
		Page:               page,
		PerPage:            perPage,
	}

	users, total, err := h.service.SearchUsers(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to search users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SEARCH_FAILED", "message": "Failed to search users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}

// GetUserHandler returns one user
func (h *Handler) GetUserHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND", "message": "User not found"})
			return
		}
		h.logger.Error("Failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) setBan(c *gin.Context, ban bool) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	user, err := h.service.BanUser(c.Request.Context(), id, ban)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND", "message": "User not found"})
		case errors.Is(err, ErrCannotBan):
			c.JSON(http.StatusForbidden, gin.H{"error": "CANNOT_BAN_ADMIN", "message": "Administrators cannot be banned"})
		default:
			h.logger.Error("Failed to change user status", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "UPDATE_FAILED", "message": "Failed to change user status"})
		}
		return
	}
	c.JSON(http.StatusOK, user)
}

// BanUserHandler suspends a user account
func (h *Handler) BanUserHandler(c *gin.Context) { h.setBan(c, true) }

// UnbanUserHandler reinstates a suspended account
func (h *Handler) UnbanUserHandler(c *gin.Context) { h.setBan(c, false) }

// PendingVerificationsHandler lists verifications awaiting review
func (h *Handler) PendingVerificationsHandler(c *gin.Context) {
	page, perPage := pagination(c)

	list, total, err := h.verifications.PendingReview(c.Request.Context(), page, perPage)
	if err != nil {
		h.logger.Error("Failed to list pending verifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to list pending verifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verifications": list,
		"pagination": gin.H{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}

func (h *Handler) respondVerificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, verifications.ErrVerificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "VERIFICATION_NOT_FOUND", "message": "Verification not found"})
	case errors.Is(err, verifications.ErrNotReviewable):
		c.JSON(http.StatusConflict, gin.H{"error": "NOT_REVIEWABLE", "message": "Verification is not awaiting review"})
	default:
		h.logger.Error("Verification review failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "REVIEW_FAILED", "message": "Verification review failed"})
	}
}

// GetVerificationHandler returns one verification for review
func (h *Handler) GetVerificationHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	verification, err := h.verifications.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, verifications.ErrVerificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "VERIFICATION_NOT_FOUND", "message": "Verification not found"})
			return
		}
		h.logger.Error("Failed to load verification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load verification"})
		return
	}
	c.JSON(http.StatusOK, verification)
}

// ApproveVerificationHandler approves a pending verification
func (h *Handler) ApproveVerificationHandler(c *gin.Context) {
	adminID, _ := identities.CurrentUserID(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	verification, err := h.verifications.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		h.respondVerificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, verification)
}

// RejectRequest carries the rejection reason
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectVerificationHandler rejects a pending verification
func (h *Handler) RejectVerificationHandler(c *gin.Context) {
	adminID, _ := identities.CurrentUserID(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	verification, err := h.verifications.Reject(c.Request.Context(), id, adminID, req.Reason)
	if err != nil {
		h.respondVerificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, verification)
}

// RunOCRHandler re-runs the automatic pipeline on a verification
func (h *Handler) RunOCRHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	verification, err := h.verifications.RunOCR(c.Request.Context(), id)
	if err != nil {
		h.respondVerificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, verification)
}

// ListReportsHandler lists user complaints, pending first
func (h *Handler) ListReportsHandler(c *gin.Context) {
	page, perPage := pagination(c)

	rows, total, err := h.reports.ListForAdmin(c.Request.Context(), c.Query("status"), page, perPage)
	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": rows,
		"pagination": gin.H{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}

// GetReportHandler returns one report
func (h *Handler) GetReportHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, reports.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "REPORT_NOT_FOUND", "message": "Report not found"})
			return
		}
		h.logger.Error("Failed to load report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ReviewReportHandler records an admin decision on a report
func (h *Handler) ReviewReportHandler(c *gin.Context) {
	adminID, _ := identities.CurrentUserID(c)
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req reports.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	report, err := h.reports.Review(c.Request.Context(), id, adminID, &req)
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrReportNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "REPORT_NOT_FOUND", "message": "Report not found"})
		case errors.Is(err, reports.ErrAlreadyReviewed):
			c.JSON(http.StatusConflict, gin.H{"error": "ALREADY_REVIEWED", "message": "Report has already been reviewed"})
		default:
			h.logger.Error("Failed to review report", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "REVIEW_FAILED", "message": "Failed to review report"})
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

// RefundPaymentHandler refunds a completed payment
func (h *Handler) RefundPaymentHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	payment, err := h.payments.Refund(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "PAYMENT_NOT_FOUND", "message": "Payment not found"})
		case errors.Is(err, payments.ErrNotRefundable):
			c.JSON(http.StatusConflict, gin.H{"error": "NOT_REFUNDABLE", "message": "Only completed payments can be refunded"})
		default:
			h.logger.Error("Failed to refund payment", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "REFUND_FAILED", "message": "Failed to refund payment"})
		}
		return
	}
	c.JSON(http.StatusOK, payment)
}
