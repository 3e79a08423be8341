package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/papers-hub-api/api/swagger"
	"github.com/noah-isme/papers-hub-api/internal/handler"
	"github.com/noah-isme/papers-hub-api/internal/middleware"
	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
	"github.com/noah-isme/papers-hub-api/pkg/config"
	"github.com/noah-isme/papers-hub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/papers-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/papers-hub-api/pkg/middleware/requestid"
)

type routerDeps struct {
	sessions    *middleware.Sessions
	metrics     *service.MetricsService
	auditRepo   middleware.AuditWriter
	auth        *handler.AuthHandler
	session     *handler.SessionHandler
	departments *handler.DepartmentHandler
	teachers    *handler.TeacherHandler
	media       *handler.MediaHandler
	health      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))
	r.Use(d.sessions.Load())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", d.health.Health)
	r.GET("/ready", d.health.Ready)
	if d.metrics != nil {
		r.GET("/metrics", d.health.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.GET("/media/*path", d.media.Serve)

	api := r.Group(cfg.APIPrefix)
	api.GET("/catalog", d.session.Catalog)
	api.GET("/session", d.session.Current)

	auth := api.Group("/auth")
	auth.POST("/student/otp", d.auth.RequestOTP)
	auth.POST("/student/verify", d.auth.VerifyOTP)
	auth.POST("/teacher/:institution/login", d.auth.TeacherLogin)
	auth.POST("/logout", d.auth.Logout)

	student := api.Group("/student", d.sessions.RequireAuthenticated())
	student.POST("/institution/:institution", d.auth.SelectInstitution)
	student.GET("/subscriptions", d.session.Subscriptions)

	departments := api.Group("/departments", d.sessions.RequireInstitution())
	departments.GET("", d.departments.Departments)
	departments.GET("/:department/terms", d.departments.Terms)
	departments.GET("/:department/terms/:term/documents", d.departments.Documents)
	departments.GET("/:department/internships", d.departments.Internships)
	departments.POST("/:department/terms/:term/student-upload/verify", d.departments.VerifyUpload)
	departments.POST("/:department/terms/:term/student-upload", d.departments.StudentUpload)

	teacher := api.Group("/teacher/:department", d.sessions.RequireTeacherDepartment())
	teacher.GET("/dashboard", d.teachers.Dashboard)
	teacher.POST("/terms/:term/documents/:category", d.teachers.Upload)
	teacher.GET("/documents", d.teachers.List)
	teacher.GET("/documents/export",
		middleware.Audit(d.auditRepo, models.AuditActionDocumentExport, "document", logr),
		d.teachers.Export)

	api.DELETE("/documents/:id", d.sessions.RequireAuthenticated(), d.teachers.Delete)

	return r
}
