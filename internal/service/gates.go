package service

import (
	"strings"

	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

// RequireAuthenticated rejects anonymous sessions.
func RequireAuthenticated(sess models.Session) error {
	if !sess.Authenticated {
		return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrAuthRequired, "Please login first."), RedirectRoleSelection)
	}
	return nil
}

// RequireInstitution rejects students that have not picked an institution.
// Teachers always carry one from their credential.
func RequireInstitution(sess models.Session) error {
	if err := RequireAuthenticated(sess); err != nil {
		return err
	}
	if !sess.IsTeacher() && !sess.HasInstitution() {
		return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrInstitutionRequired, "Please select your college first."), RedirectInstitutionSelection)
	}
	return nil
}

// RequireTeacherOf admits only the teacher bound to department.
func RequireTeacherOf(sess models.Session, department string) error {
	if !sess.IsTeacher() {
		return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrForbidden, "Please login as teacher first."), TeacherLoginRedirect(sess.Institution))
	}
	if !strings.EqualFold(sess.Department, department) {
		return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrForbidden, "You do not have access to this branch."), TeacherLoginRedirect(sess.Institution))
	}
	return nil
}
