package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/papers-hub-api/internal/dto"
	"github.com/noah-isme/papers-hub-api/internal/middleware"
	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
	"github.com/noah-isme/papers-hub-api/pkg/response"
)

type sessionWriter interface {
	Save(c *gin.Context, sess models.Session)
	Fail(c *gin.Context, err error)
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func termParam(c *gin.Context) (int, error) {
	term, err := models.ParseTerm(c.Param("term"))
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return term, nil
}

// respondAction persists next with its flashes delivered in the body.
func respondAction(c *gin.Context, sessions sessionWriter, status int, next models.Session, redirect string, data interface{}) {
	flashes, popped := next.PopFlashes()
	sessions.Save(c, popped)
	response.JSON(c, status, dto.ActionResponse{
		Redirect: redirect,
		Session:  dto.NewSessionView(popped, flashes),
		Data:     data,
	}, middleware.ExtractMeta(c))
}

// formUpload opens the multipart "file" field. The caller closes the returned file.
func formUpload(c *gin.Context) (service.DocumentUpload, multipart.File, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return service.DocumentUpload{}, nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	src, err := header.Open()
	if err != nil {
		return service.DocumentUpload{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to open file")
	}
	return service.DocumentUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  src,
	}, src, nil
}
