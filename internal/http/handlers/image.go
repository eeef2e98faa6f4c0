package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/http/middleware"
	"github.com/yungbote/draftcut-backend/internal/http/response"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
	"github.com/yungbote/draftcut-backend/internal/services"
)

type ImageHandler struct {
	log    *logger.Logger
	images services.ImageGenerationService
}

func NewImageHandler(log *logger.Logger, images services.ImageGenerationService) *ImageHandler {
	return &ImageHandler{log: log.With("handler", "ImageHandler"), images: images}
}

type generateImagesRequest struct {
	APIKeyID    uuid.UUID   `json:"api_key_id"`
	SentenceIDs []uuid.UUID `json:"sentence_ids"`
}

// POST /api/images/generate
func (h *ImageHandler) Generate(c *gin.Context) {
	var req generateImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.APIKeyID == uuid.Nil || len(req.SentenceIDs) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("api_key_id and sentence_ids are required"))
		return
	}
	sum, err := h.images.GenerateImages(c.Request.Context(), middleware.UserID(c), req.APIKeyID, req.SentenceIDs)
	if err != nil {
		_ = c.Error(err)
		response.RespondMediaError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": sum})
}
