package dto

import "github.com/noah-isme/papers-hub-api/internal/models"

// RequestOTPRequest starts the student login flow.
type RequestOTPRequest struct {
	Email string `json:"email" form:"email" validate:"required,email,max=254"`
}

// VerifyOTPRequest completes the student login flow.
type VerifyOTPRequest struct {
	OTP string `json:"otp" form:"otp" validate:"required,len=6,numeric"`
}

// TeacherLoginRequest carries static teacher credentials.
type TeacherLoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"required,max=128"`
}

// UploadPasswordRequest unlocks the student upload form.
type UploadPasswordRequest struct {
	Password string `json:"password" form:"password" validate:"required"`
}

// SessionView is the client-facing snapshot of a session.
type SessionView struct {
	Authenticated   bool           `json:"authenticated"`
	Role            models.Role    `json:"role,omitempty"`
	Email           string         `json:"email,omitempty"`
	PendingEmail    string         `json:"pendingEmail,omitempty"`
	DisplayName     string         `json:"displayName,omitempty"`
	Institution     string         `json:"institution,omitempty"`
	InstitutionName string         `json:"institutionName,omitempty"`
	Department      string         `json:"department,omitempty"`
	DepartmentName  string         `json:"departmentName,omitempty"`
	UploadVerified  bool           `json:"uploadVerified"`
	Flashes         []models.Flash `json:"flashes"`
}

// NewSessionView projects a session and the flashes popped from it.
func NewSessionView(s models.Session, flashes []models.Flash) SessionView {
	if flashes == nil {
		flashes = []models.Flash{}
	}
	view := SessionView{
		Authenticated:   s.Authenticated,
		Role:            s.Role,
		Email:           s.Email,
		PendingEmail:    s.PendingEmail,
		Institution:     s.Institution,
		InstitutionName: s.InstitutionName,
		Department:      s.Department,
		DepartmentName:  s.DepartmentName,
		UploadVerified:  s.UploadVerified,
		Flashes:         flashes,
	}
	if s.Authenticated {
		view.DisplayName = s.DisplayName()
	}
	return view
}

// ActionResponse answers a state-changing request: where the client should go
// next, the resulting session with its flashes, and optional payload.
type ActionResponse struct {
	Redirect string      `json:"redirect"`
	Session  SessionView `json:"session"`
	Data     interface{} `json:"data,omitempty"`
}
