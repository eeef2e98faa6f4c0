package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/draftcut-backend/internal/domain/media"
)

// StatusFor maps a media error code to an HTTP status.
func StatusFor(code media.ErrorCode) int {
	switch code {
	case media.CodeNotFound:
		return http.StatusNotFound
	case media.CodeState, media.CodeEmptyData, media.CodeValidation:
		return http.StatusBadRequest
	case media.CodeProvider, media.CodeDownload, media.CodeUpload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondMediaError writes err with the status and code derived from its media error code.
func RespondMediaError(c *gin.Context, err error) {
	code := media.CodeOf(err)
	if code == "" {
		code = media.CodeInternal
	}
	RespondError(c, StatusFor(code), string(code), err)
}
