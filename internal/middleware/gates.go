package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
)

// Gate admits or rejects a session.
type Gate func(sess models.Session) error

// Require aborts the request with the gate's error envelope and flash.
func (s *Sessions) Require(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate(Session(c)); err != nil {
			s.Fail(c, err)
			return
		}
		c.Next()
	}
}

// RequireAuthenticated admits any logged-in session.
func (s *Sessions) RequireAuthenticated() gin.HandlerFunc {
	return s.Require(service.RequireAuthenticated)
}

// RequireInstitution admits teachers and students with a selected institution.
func (s *Sessions) RequireInstitution() gin.HandlerFunc {
	return s.Require(service.RequireInstitution)
}

// RequireTeacherDepartment admits only the teacher of the :department path param.
func (s *Sessions) RequireTeacherDepartment() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.RequireTeacherOf(Session(c), c.Param("department")); err != nil {
			s.Fail(c, err)
			return
		}
		c.Next()
	}
}
