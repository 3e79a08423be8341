package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
	"github.com/noah-isme/papers-hub-api/pkg/response"
	"github.com/noah-isme/papers-hub-api/pkg/storage"
)

type mediaType struct {
	contentType string
	inline      bool
}

// mediaTypes maps stored extensions to the type they are served as. Only
// passive formats render inline; unknown extensions download as octet-stream.
var mediaTypes = map[string]mediaType{
	".pdf":  {contentType: "application/pdf", inline: true},
	".png":  {contentType: "image/png", inline: true},
	".jpg":  {contentType: "image/jpeg", inline: true},
	".jpeg": {contentType: "image/jpeg", inline: true},
	".txt":  {contentType: "text/plain; charset=utf-8", inline: true},
	".doc":  {contentType: "application/msword"},
	".docx": {contentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".ppt":  {contentType: "application/vnd.ms-powerpoint"},
	".pptx": {contentType: "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	".zip":  {contentType: "application/zip"},
}

type mediaFiles interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Size(ctx context.Context, key string) (int64, error)
}

// MediaHandler streams stored uploads.
type MediaHandler struct {
	files mediaFiles
}

// NewMediaHandler constructs the handler.
func NewMediaHandler(files mediaFiles) *MediaHandler {
	return &MediaHandler{files: files}
}

// Serve godoc
// @Summary Download an uploaded file
// @Tags Media
// @Produce octet-stream
// @Param path path string true "Stored file path"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /media/{path} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	raw := strings.TrimPrefix(c.Param("path"), "/")
	key := path.Clean(raw)
	if raw == "" || key != raw || strings.HasPrefix(key, "../") || key == ".." {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	ctx := c.Request.Context()
	size, err := h.files.Size(ctx, key)
	if err != nil {
		h.fail(c, err)
		return
	}
	file, err := h.files.Open(ctx, key)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	kind, ok := mediaTypes[strings.ToLower(path.Ext(key))]
	if !ok {
		kind = mediaType{contentType: "application/octet-stream"}
	}
	disposition := "attachment"
	if kind.inline {
		disposition = "inline"
	}
	c.DataFromReader(http.StatusOK, size, kind.contentType, file, map[string]string{
		"Content-Disposition":    disposition + `; filename="` + path.Base(key) + `"`,
		"X-Content-Type-Options": "nosniff",
	})
}

func (h *MediaHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
}
