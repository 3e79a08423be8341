package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/papers-hub-api/internal/dto"
	"github.com/noah-isme/papers-hub-api/internal/middleware"
	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
	"github.com/noah-isme/papers-hub-api/pkg/response"
)

type scopeDocuments interface {
	ListScope(ctx context.Context, sess models.Session, department string, term int) (*dto.DocumentScopeResponse, error)
	VerifyStudentUpload(ctx context.Context, sess models.Session, department string, term int, req dto.UploadPasswordRequest) (models.Session, error)
	StudentUpload(ctx context.Context, sess models.Session, department string, term int, req dto.UploadDocumentRequest, upload service.DocumentUpload, meta service.RequestMeta) (*models.Document, models.Session, error)
}

type internshipLister interface {
	ListForDepartment(ctx context.Context, department string) ([]service.InternshipListing, error)
}

// DepartmentHandler serves the department, term and scope pages.
type DepartmentHandler struct {
	documents   scopeDocuments
	internships internshipLister
	sessions    sessionWriter
}

// NewDepartmentHandler constructs the handler.
func NewDepartmentHandler(documents scopeDocuments, internships internshipLister, sessions sessionWriter) *DepartmentHandler {
	return &DepartmentHandler{documents: documents, internships: internships, sessions: sessions}
}

// Departments godoc
// @Summary Department selection
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) Departments(c *gin.Context) {
	sess := middleware.Session(c)
	response.JSON(c, http.StatusOK, gin.H{
		"institution":     sess.Institution,
		"institutionName": sess.InstitutionName,
		"departments":     models.DefaultCatalog().Departments,
	}, nil)
}

// Terms godoc
// @Summary Term selection for a department
// @Tags Departments
// @Produce json
// @Param department path string true "Department code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{department}/terms [get]
func (h *DepartmentHandler) Terms(c *gin.Context) {
	department := c.Param("department")
	name, ok := models.DepartmentName(department)
	if !ok {
		h.sessions.Fail(c, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "Unknown branch."), service.RedirectDepartments))
		return
	}
	response.JSON(c, http.StatusOK, dto.TermSelectionResponse{
		Department:     department,
		DepartmentName: name,
		Terms:          models.DefaultCatalog().Terms,
	}, nil)
}

// Documents godoc
// @Summary Documents of one department and term
// @Description Lists the scope grouped by type and subscribes the student to upload notifications
// @Tags Documents
// @Produce json
// @Param department path string true "Department code"
// @Param term path int true "Term (1-6)"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /departments/{department}/terms/{term}/documents [get]
func (h *DepartmentHandler) Documents(c *gin.Context) {
	term, err := termParam(c)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	resp, err := h.documents.ListScope(c.Request.Context(), middleware.Session(c), c.Param("department"), term)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	middleware.SetCacheHit(c, resp.Cached)
	response.JSON(c, http.StatusOK, resp, middleware.ExtractMeta(c))
}

// Internships godoc
// @Summary Active internships of a department
// @Tags Departments
// @Produce json
// @Param department path string true "Department code"
// @Success 200 {object} response.Envelope
// @Router /departments/{department}/internships [get]
func (h *DepartmentHandler) Internships(c *gin.Context) {
	items, err := h.internships.ListForDepartment(c.Request.Context(), c.Param("department"))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// VerifyUpload godoc
// @Summary Unlock one student upload
// @Tags Documents
// @Accept json
// @Produce json
// @Param department path string true "Department code"
// @Param term path int true "Term (1-6)"
// @Param payload body dto.UploadPasswordRequest true "Shared password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /departments/{department}/terms/{term}/student-upload/verify [post]
func (h *DepartmentHandler) VerifyUpload(c *gin.Context) {
	term, err := termParam(c)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	var req dto.UploadPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		h.sessions.Fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}
	department := c.Param("department")
	next, err := h.documents.VerifyStudentUpload(c.Request.Context(), middleware.Session(c), department, term, req)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusOK, next, fmt.Sprintf("/departments/%s/terms/%d/student-upload", department, term), nil)
}

// StudentUpload godoc
// @Summary Student document upload
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param department path string true "Department code"
// @Param term path int true "Term (1-6)"
// @Param title formData string true "Title"
// @Param subject formData string true "Subject"
// @Param year formData int true "Year"
// @Param category formData string true "Document type"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /departments/{department}/terms/{term}/student-upload [post]
func (h *DepartmentHandler) StudentUpload(c *gin.Context) {
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
	doc, next, err := h.documents.StudentUpload(c.Request.Context(), middleware.Session(c), department, term, req, upload, requestMeta(c))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusCreated, next, fmt.Sprintf("/departments/%s/terms/%d/documents", department, term), doc)
}
