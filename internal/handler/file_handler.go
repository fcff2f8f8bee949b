package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classconnect-api/internal/service"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/response"
)

type downloadService interface {
	OpenDownload(ctx context.Context, token string) (*service.DownloadFile, error)
}

// FileHandler streams submission files behind signed links.
type FileHandler struct {
	service downloadService
}

// NewFileHandler constructs a file handler.
func NewFileHandler(svc downloadService) *FileHandler {
	return &FileHandler{service: svc}
}

// Download godoc
// @Summary Download a submission file
// @Tags Files
// @Produce application/octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	download, err := h.service.OpenDownload(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to read file"))
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Name),
		"Cache-Control":       "no-store",
	})
}
