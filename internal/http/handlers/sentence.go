package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/http/middleware"
	"github.com/yungbote/draftcut-backend/internal/http/response"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
	"github.com/yungbote/draftcut-backend/internal/services"
)

type SentenceHandler struct {
	sentences services.SentenceService
	bucket    gcp.BucketService
}

func NewSentenceHandler(sentences services.SentenceService, bucket gcp.BucketService) *SentenceHandler {
	return &SentenceHandler{sentences: sentences, bucket: bucket}
}

func sentenceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_sentence_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// PUT /api/sentences/:id/assets
func (h *SentenceHandler) UpdateAssets(c *gin.Context) {
	id, ok := sentenceID(c)
	if !ok {
		return
	}
	var in services.AssetsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	row, err := h.sentences.UpdateAssets(c.Request.Context(), middleware.UserID(c), id, in)
	if err != nil {
		response.RespondMediaError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sentence": newSentenceView(h.bucket, row)})
}

// POST /api/sentences/:id/video-cache
func (h *SentenceHandler) SaveVideoCache(c *gin.Context) {
	id, ok := sentenceID(c)
	if !ok {
		return
	}
	var in services.VideoCacheInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	st, err := h.sentences.SaveVideoCache(c.Request.Context(), middleware.UserID(c), id, in)
	if err != nil {
		response.RespondMediaError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cache": st})
}

// GET /api/sentences/:id/cache
func (h *SentenceHandler) GetCache(c *gin.Context) {
	id, ok := sentenceID(c)
	if !ok {
		return
	}
	st, err := h.sentences.GetCacheState(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		response.RespondMediaError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cache": st})
}
