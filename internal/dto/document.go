package dto

import "github.com/noah-isme/papers-hub-api/internal/models"

// UploadDocumentRequest contains metadata submitted alongside a file upload.
type UploadDocumentRequest struct {
	Title    string `form:"title" json:"title" validate:"required,max=200"`
	Subject  string `form:"subject" json:"subject" validate:"required,max=100"`
	Year     int    `form:"year" json:"year" validate:"required,gte=1950,lte=2100"`
	Category string `form:"category" json:"category"`
}

// DocumentScopeResponse is the listing shown for one department and term.
type DocumentScopeResponse struct {
	Institution     string            `json:"institution"`
	InstitutionName string            `json:"institutionName"`
	Department      string            `json:"department"`
	DepartmentName  string            `json:"departmentName"`
	Term            int               `json:"term"`
	TermName        string            `json:"termName"`
	Documents       []models.Document `json:"documents"`
	Notes           []models.Document `json:"notes"`
	Syllabus        []models.Document `json:"syllabus"`
	Midterm         []models.Document `json:"midterm"`
	Model           []models.Document `json:"model"`
	Cached          bool              `json:"-"`
}

// TeacherDashboardResponse summarises a teacher's department.
type TeacherDashboardResponse struct {
	Username        string                `json:"username"`
	DisplayName     string                `json:"displayName"`
	Institution     string                `json:"institution"`
	InstitutionName string                `json:"institutionName"`
	Department      string                `json:"department"`
	DepartmentName  string                `json:"departmentName"`
	Terms           []models.CatalogEntry `json:"terms"`
	Categories      []models.CatalogEntry `json:"categories"`
	CategoryCounts  map[string]int        `json:"categoryCounts"`
}

// TermSelectionResponse lists terms for a department.
type TermSelectionResponse struct {
	Department     string                `json:"department"`
	DepartmentName string                `json:"departmentName"`
	Terms          []models.CatalogEntry `json:"terms"`
}
