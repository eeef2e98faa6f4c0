package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/http/middleware"
	"github.com/yungbote/draftcut-backend/internal/http/response"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
	"github.com/yungbote/draftcut-backend/internal/services"
)

const DownloadPathPrefix = "/api/export/jianying/download/"

type ExportHandler struct {
	log     *logger.Logger
	exports services.ExportService
}

func NewExportHandler(log *logger.Logger, exports services.ExportService) *ExportHandler {
	return &ExportHandler{log: log.With("handler", "ExportHandler"), exports: exports}
}

type exportResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url"`
	FileName    string `json:"filename"`
	DraftID     string `json:"draft_id,omitempty"`
	Duration    int64  `json:"duration"`
	Missing     int    `json:"missing_assets"`
}

// POST /api/export/jianying/:chapter_id
func (h *ExportHandler) ExportJianYing(c *gin.Context) {
	chapterID, err := uuid.Parse(c.Param("chapter_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_chapter_id", err)
		return
	}
	res, err := h.exports.ExportChapter(c.Request.Context(), middleware.UserID(c), chapterID)
	if err != nil {
		_ = c.Error(err)
		response.RespondMediaError(c, err)
		return
	}
	response.RespondOK(c, exportResponse{
		Success:     true,
		Message:     "export succeeded",
		DownloadURL: DownloadPathPrefix + res.FileName,
		FileName:    res.FileName,
		DraftID:     res.DraftID,
		Duration:    res.Duration,
		Missing:     res.MissingAssets,
	})
}

// GET /api/export/jianying/download/:filename
func (h *ExportHandler) Download(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.exports.OpenArchive(name)
	if err != nil {
		response.RespondMediaError(c, err)
		return
	}
	c.Header("Content-Type", "application/zip")
	c.FileAttachment(path, name)
}
