package verifications

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/identities"
)

// Handler provides HTTP handlers for verification operations
type Handler struct {
	service VerificationService
	logger  *zap.Logger
}

// NewHandler creates a new verifications handler
func NewHandler(service VerificationService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// readUpload pulls a multipart file field into memory
func readUpload(c *gin.Context, field string) (Upload, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "FILE_REQUIRED", "message": "A file upload is required"})
		return Upload{}, false
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_FILE", "message": "Could not read the uploaded file"})
		return Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_FILE", "message": "Could not read the uploaded file"})
		return Upload{}, false
	}
	return Upload{
		Data:     data,
		MimeType: header.Header.Get("Content-Type"),
		Filename: header.Filename,
	}, true
}

func respondUploadError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "FILE_TOO_LARGE", "message": "File exceeds the maximum upload size"})
	case errors.Is(err, ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "UNSUPPORTED_TYPE", "message": "Unsupported file type"})
	default:
		return false
	}
	return true
}

// SubmitHandler accepts a document upload for verification
func (h *Handler) SubmitHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	documentType := c.PostForm("document_type")
	documentCountry := c.PostForm("document_country")

	upload, ok := readUpload(c, "file")
	if !ok {
		return
	}

	verification, err := h.service.Submit(c.Request.Context(), userID, documentType, documentCountry, upload)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDocumentType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_DOCUMENT_TYPE", "message": "Invalid document type"})
		case errors.Is(err, ErrPaymentRequired):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "PAYMENT_REQUIRED", "message": "A valid payment is required before uploading"})
		default:
			if respondUploadError(c, err) {
				return
			}
			h.logger.Error("Failed to submit verification", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "SUBMIT_FAILED", "message": "Failed to submit verification"})
		}
		return
	}

	c.JSON(http.StatusCreated, verification)
}

// ListHandler returns the caller's verifications
func (h *Handler) ListHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	list, err := h.service.List(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		h.logger.Error("Failed to list verifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to list verifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verifications": list})
}

// SummaryHandler returns the caller's aggregate verification state
func (h *Handler) SummaryHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	summary, err := h.service.Summary(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to build verification summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to build verification summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func verificationParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_VERIFICATION_ID", "message": "Invalid verification ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// GetHandler returns one verification for its owner
func (h *Handler) GetHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)
	id, ok := verificationParam(c)
	if !ok {
		return
	}

	verification, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrVerificationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "VERIFICATION_NOT_FOUND", "message": "Verification not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "NOT_OWNER", "message": "Verification belongs to another user"})
		default:
			h.logger.Error("Failed to load verification", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load verification"})
		}
		return
	}

	c.JSON(http.StatusOK, verification)
}

// CancelHandler withdraws an undecided verification
func (h *Handler) CancelHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)
	id, ok := verificationParam(c)
	if !ok {
		return
	}

	verification, err := h.service.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrVerificationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "VERIFICATION_NOT_FOUND", "message": "Verification not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "NOT_OWNER", "message": "Verification belongs to another user"})
		case errors.Is(err, ErrNotCancellable):
			c.JSON(http.StatusConflict, gin.H{"error": "NOT_CANCELLABLE", "message": "Verification can no longer be cancelled"})
		default:
			h.logger.Error("Failed to cancel verification", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "CANCEL_FAILED", "message": "Failed to cancel verification"})
		}
		return
	}

	c.JSON(http.StatusOK, verification)
}

// UploadSelfieHandler stores the caller's reference selfie
func (h *Handler) UploadSelfieHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	upload, ok := readUpload(c, "file")
	if !ok {
		return
	}

	selfie, err := h.service.UploadSelfie(c.Request.Context(), userID, upload)
	if err != nil {
		if respondUploadError(c, err) {
			return
		}
		h.logger.Error("Failed to upload selfie", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "UPLOAD_FAILED", "message": "Failed to upload selfie"})
		return
	}

	c.JSON(http.StatusCreated, selfie)
}

// GetSelfieHandler returns the caller's selfie record
func (h *Handler) GetSelfieHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	selfie, err := h.service.GetSelfie(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrSelfieNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "SELFIE_NOT_FOUND", "message": "No selfie on file"})
			return
		}
		h.logger.Error("Failed to load selfie", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load selfie"})
		return
	}

	c.JSON(http.StatusOK, selfie)
}

// SelfieStatusHandler reports the caller's selfie processing state
func (h *Handler) SelfieStatusHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	status, err := h.service.GetSelfieStatus(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load selfie status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RETRIEVAL_FAILED", "message": "Failed to load selfie status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// DeleteSelfieHandler removes the caller's selfie
func (h *Handler) DeleteSelfieHandler(c *gin.Context) {
	userID, _ := identities.CurrentUserID(c)

	if err := h.service.DeleteSelfie(c.Request.Context(), userID); err != nil {
		if errors.Is(err, ErrSelfieNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "SELFIE_NOT_FOUND", "message": "No selfie on file"})
			return
		}
		h.logger.Error("Failed to delete selfie", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DELETE_FAILED", "message": "Failed to delete selfie"})
		return
	}

	c.Status(http.StatusNoContent)
}
