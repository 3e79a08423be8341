package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/papers-hub-api/internal/dto"
	"github.com/noah-isme/papers-hub-api/internal/middleware"
	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
	"github.com/noah-isme/papers-hub-api/pkg/response"
)

type teacherDocuments interface {
	TeacherUpload(ctx context.Context, sess models.Session, department string, term int, category string, req dto.UploadDocumentRequest, upload service.DocumentUpload, meta service.RequestMeta) (*models.Document, models.Session, error)
	ListOwn(ctx context.Context, sess models.Session, department string) ([]models.Document, error)
	Dashboard(ctx context.Context, sess models.Session, department string) (*dto.TeacherDashboardResponse, error)
	Export(ctx context.Context, sess models.Session, department, format string) ([]byte, string, string, error)
	Delete(ctx context.Context, sess models.Session, id string, meta service.RequestMeta) (models.Session, error)
}

// TeacherHandler serves the teacher dashboard and document management.
type TeacherHandler struct {
	documents teacherDocuments
	sessions  sessionWriter
}

// NewTeacherHandler constructs the handler.
func NewTeacherHandler(documents teacherDocuments, sessions sessionWriter) *TeacherHandler {
	return &TeacherHandler{documents: documents, sessions: sessions}
}

// Dashboard godoc
// @Summary Teacher dashboard
// @Tags Teachers
// @Produce json
// @Param department path string true "Department code"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/{department}/dashboard [get]
func (h *TeacherHandler) Dashboard(c *gin.Context) {
	resp, err := h.documents.Dashboard(c.Request.Context(), middleware.Session(c), c.Param("department"))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Upload godoc
// @Summary Teacher document upload
// @Description Stores the file and emails subscribed students
// @Tags Teachers
// @Accept multipart/form-data
// @Produce json
// @Param department path string true "Department code"
// @Param term path int true "Term (1-6)"
// @Param category path string true "notes, syllabus, midterm or model"
// @Param title formData string true "Title"
// @Param subject formData string true "Subject"
// @Param year formData int true "Year"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/{department}/terms/{term}/documents/{category} [post]
func (h *TeacherHandler) Upload(c *gin.Context) {
	term, err := termParam(c)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.sessions.Fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
		return
	}
	upload, file, err := formUpload(c)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	defer file.Close()

	department := c.Param("department")
	category := strings.ToLower(c.Param("category"))
	doc, next, err := h.documents.TeacherUpload(c.Request.Context(), middleware.Session(c), department, term, category, req, upload, requestMeta(c))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusCreated, next, fmt.Sprintf("/teacher/%s/dashboard", department), doc)
}

// List godoc
// @Summary Manage own uploads
// @Tags Teachers
// @Produce json
// @Param department path string true "Department code"
// @Success 200 {object} response.Envelope
// @Router /teacher/{department}/documents [get]
func (h *TeacherHandler) List(c *gin.Context) {
	docs, err := h.documents.ListOwn(c.Request.Context(), middleware.Session(c), c.Param("department"))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, map[string]interface{}{"total": len(docs)})
}

// Export godoc
// @Summary Export own uploads
// @Tags Teachers
// @Produce text/csv
// @Produce application/pdf
// @Param department path string true "Department code"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /teacher/{department}/documents/export [get]
func (h *TeacherHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	data, filename, contentType, err := h.documents.Export(c.Request.Context(), middleware.Session(c), c.Param("department"), format)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	response.Attachment(c, filename, contentType, data)
}

// Delete godoc
// @Summary Delete an own document
// @Tags Teachers
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	sess := middleware.Session(c)
	next, err := h.documents.Delete(c.Request.Context(), sess, c.Param("id"), requestMeta(c))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusOK, next, fmt.Sprintf("/teacher/%s/documents", sess.Department), nil)
}
