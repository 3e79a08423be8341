package service

import "fmt"

// Client routes used as redirect targets in error envelopes.
const (
	RedirectRoleSelection        = "/"
	RedirectStudentLogin         = "/login/student"
	RedirectVerifyOTP            = "/login/student/verify"
	RedirectInstitutionSelection = "/student/institution"
	RedirectDepartments          = "/departments"
	RedirectTeacherLogin         = "/login/teacher"
)

// TeacherLoginRedirect is the login entry for one institution.
func TeacherLoginRedirect(institution string) string {
	if institution == "" {
		return RedirectTeacherLogin
	}
	return RedirectTeacherLogin + "/" + institution
}

// StudentUploadVerifyRedirect is the password page of a scope.
func StudentUploadVerifyRedirect(department string, term int) string {
	return fmt.Sprintf("/departments/%s/terms/%d/student-upload/verify", department, term)
}
