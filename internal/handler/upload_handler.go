package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/pkg/storage"
)

const presignExpiry = 15 * time.Minute

// UploadHandler issues presigned URLs for chat attachment uploads.
// Clients upload directly to object storage; the API never proxies bytes.
type UploadHandler struct {
	s3 *storage.S3Client
}

// NewUploadHandler creates a new UploadHandler; s3 may be nil when object
// storage is not configured
func NewUploadHandler(s3 *storage.S3Client) *UploadHandler {
	return &UploadHandler{s3: s3}
}

// Enabled reports whether object storage is configured
func (h *UploadHandler) Enabled() bool {
	return h.s3 != nil
}

type presignRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required,max=100"`
}

// PresignUpload handles POST /api/chat/uploads
// @Summary Request an attachment upload URL
// @Description Returns a presigned PUT URL plus the public URL to reference in a message
// @Tags chat-uploads
// @Accept json
// @Produce json
// @Param request body handler.presignRequest true "File info"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /chat/uploads [post]
func (h *UploadHandler) PresignUpload(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	key := storage.GenerateKey("chat", req.Filename)
	upload, err := h.s3.PresignUpload(c.Request.Context(), key, req.ContentType, presignExpiry)
	if err != nil {
		common.FromError(c, err, "failed to presign upload")
		return
	}
	common.Success(c, upload)
}
