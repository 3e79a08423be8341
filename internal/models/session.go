package models

import (
	"strings"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
)

// FlashLevel classifies a one-shot message shown after a redirect.
type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
)

// Flash is a one-shot user message.
type Flash struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}

// Session is the per-client state carried between requests.
// Values are never mutated in place; every transition returns a copy.
type Session struct {
	ID              string  `json:"id,omitempty"`
	Authenticated   bool    `json:"authenticated"`
	Role            Role    `json:"role,omitempty"`
	Email           string  `json:"email,omitempty"`
	PendingEmail    string  `json:"pendingEmail,omitempty"`
	Institution     string  `json:"institution,omitempty"`
	InstitutionName string  `json:"institutionName,omitempty"`
	Department      string  `json:"department,omitempty"`
	DepartmentName  string  `json:"departmentName,omitempty"`
	UploadVerified  bool    `json:"uploadVerified,omitempty"`
	UploadGrant     string  `json:"uploadGrant,omitempty"`
	Flashes         []Flash `json:"flashes,omitempty"`
}

// SessionClaims is the signed cookie payload.
type SessionClaims struct {
	Session Session `json:"session"`
	jwt.RegisteredClaims
}

func (s Session) clone() Session {
	out := s
	if len(s.Flashes) > 0 {
		out.Flashes = append([]Flash(nil), s.Flashes...)
	}
	return out
}

// IsTeacher reports whether the session belongs to an authenticated teacher.
func (s Session) IsTeacher() bool { return s.Authenticated && s.Role == RoleTeacher }

// IsStudent reports whether the session belongs to an authenticated non-teacher.
func (s Session) IsStudent() bool { return s.Authenticated && s.Role != RoleTeacher }

// HasInstitution reports whether a scope institution is selected.
func (s Session) HasInstitution() bool { return s.Institution != "" }

// UploaderID is the identity recorded on documents this session uploads.
func (s Session) UploaderID() string {
	if s.Email != "" {
		return s.Email
	}
	return string(RoleStudent)
}

// DisplayName is the title-cased identity used in greetings.
func (s Session) DisplayName() string { return TitleCase(s.UploaderID()) }

// WithPendingEmail records the address awaiting OTP verification.
func (s Session) WithPendingEmail(email string) Session {
	out := s.clone()
	out.PendingEmail = email
	return out
}

// Verified returns the session after a successful OTP check: authenticated as
// email with role, institution, department and pending email cleared.
func (s Session) Verified(email string) Session {
	return Session{
		Authenticated: true,
		Email:         email,
		Flashes:       s.clone().Flashes,
	}
}

// WithInstitution scopes a student session to an institution.
func (s Session) WithInstitution(code, name string) Session {
	out := s.clone()
	out.Institution = code
	out.InstitutionName = name
	out.Role = RoleStudent
	return out
}

// AsTeacher returns an authenticated teacher session fixed to one department.
func (s Session) AsTeacher(account TeacherAccount, institutionName string) Session {
	return Session{
		Authenticated:   true,
		Role:            RoleTeacher,
		Email:           account.Username,
		Institution:     account.Institution,
		InstitutionName: institutionName,
		Department:      account.Department,
		DepartmentName:  account.DepartmentName,
		Flashes:         s.clone().Flashes,
	}
}

// WithID binds the session to a server-side identifier.
func (s Session) WithID(id string) Session {
	out := s.clone()
	out.ID = id
	return out
}

// WithUploadGrant opens the student upload gate with a single-use grant.
// An empty grant closes the gate.
func (s Session) WithUploadGrant(grant string) Session {
	out := s.clone()
	out.UploadGrant = grant
	out.UploadVerified = grant != ""
	return out
}

// WithFlash appends a one-shot message.
func (s Session) WithFlash(level FlashLevel, message string) Session {
	if message == "" {
		return s
	}
	out := s.clone()
	out.Flashes = append(out.Flashes, Flash{Level: level, Message: message})
	return out
}

// PopFlashes returns pending messages and the session without them.
func (s Session) PopFlashes() ([]Flash, Session) {
	out := s.clone()
	flashes := out.Flashes
	out.Flashes = nil
	return flashes, out
}

// Cleared is the logged-out state, keeping only pending flashes.
func (s Session) Cleared() Session {
	return Session{Flashes: s.clone().Flashes}
}

// TitleCase upper-cases every letter that follows a non-letter and lower-cases
// the rest, so "rajesh" becomes "Rajesh" and "a@x.edu" becomes "A@X.Edu".
func TitleCase(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	prevLetter := false
	for _, r := range v {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}
