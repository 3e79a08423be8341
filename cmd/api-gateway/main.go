package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/papers-hub-api/internal/handler"
	"github.com/noah-isme/papers-hub-api/internal/middleware"
	"github.com/noah-isme/papers-hub-api/internal/repository"
	"github.com/noah-isme/papers-hub-api/internal/service"
	"github.com/noah-isme/papers-hub-api/pkg/cache"
	"github.com/noah-isme/papers-hub-api/pkg/config"
	"github.com/noah-isme/papers-hub-api/pkg/database"
	"github.com/noah-isme/papers-hub-api/pkg/logger"
	"github.com/noah-isme/papers-hub-api/pkg/mail"
	"github.com/noah-isme/papers-hub-api/pkg/storage"
)

// @title Papers Hub API
// @version 1.0.0
// @description Question papers and study material portal for students and teachers
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return err
		}
		logr.Info("database migrations applied")
	}

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, listing cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, "papers")
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	files, err := newFileStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	mailer, err := mail.New(cfg.Mail, logr)
	if err != nil {
		return err
	}

	validate := validator.New()
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	otpRepo := repository.NewOTPRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	internshipRepo := repository.NewInternshipRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	revocationRepo := repository.NewSessionRevocationRepository(db)

	credentials, err := service.NewStaticCredentialStore(service.DefaultTeacherCredentials(), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("build credential store: %w", err)
	}
	sessionSvc, err := service.NewSessionService(cfg.Session.Secret, cfg.Session.TTL, revocationRepo)
	if err != nil {
		return err
	}
	go purgeRevocations(ctx, sessionSvc, logr)

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.DocumentsTTL, logr, true)
	}

	otpSvc := service.NewOTPService(otpRepo, mailer, metrics, logr, cfg.OTP.TTL)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, logr)
	authSvc := service.NewAuthService(otpSvc, credentials, subscriptionSvc, sessionSvc, auditRepo, validate, logr)
	notificationSvc := service.NewNotificationService(mailer, files, metrics, logr, service.NotificationConfig{
		AttachmentLimitBytes: cfg.Notifications.AttachmentLimitBytes,
		MediaBaseURL:         cfg.Storage.MediaBaseURL,
	})

	var notifier service.UploadNotifier = notificationSvc
	if cfg.Notifications.Async {
		// Queued mail outlives the signal context; Stop flushes it.
		async := service.NewAsyncNotifier(context.WithoutCancel(ctx), notificationSvc, logr, cfg.Notifications.Workers, cfg.Notifications.Retries)
		defer async.Stop()
		notifier = async
	}

	documentSvc, err := service.NewDocumentService(documentRepo, files, subscriptionSvc, notifier, sessionSvc, cacheSvc, metrics, auditRepo, validate, logr, service.DocumentServiceConfig{
		Prefix:                cfg.Uploads.Prefix,
		MaxFileSize:           cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:          cfg.Uploads.AllowedMIMEs,
		StudentUploadPassword: cfg.Uploads.StudentUploadPassword,
		MediaBaseURL:          cfg.Storage.MediaBaseURL,
	})
	if err != nil {
		return err
	}
	internshipSvc := service.NewInternshipService(internshipRepo, logr)

	sessions := middleware.NewSessions(sessionSvc, middleware.SessionCookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		MaxAge: int(sessionSvc.TTL().Seconds()),
	}, logr)

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if cacheRepo != nil {
		checks["cache"] = cacheRepo.Ping
	}

	router := newRouter(cfg, logr, routerDeps{
		sessions:    sessions,
		metrics:     metrics,
		auditRepo:   auditRepo,
		auth:        handler.NewAuthHandler(authSvc, sessions),
		session:     handler.NewSessionHandler(subscriptionSvc, sessions),
		departments: handler.NewDepartmentHandler(documentSvc, internshipSvc, sessions),
		teachers:    handler.NewTeacherHandler(documentSvc, sessions),
		media:       handler.NewMediaHandler(files),
		health:      handler.NewMetricsHandler(metrics, checks),
	})

	return serve(ctx, cfg, logr, router)
}

func purgeRevocations(ctx context.Context, sessions *service.SessionService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				logr.Warn("purge session revocations failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logr.Debug("purged session revocations", zap.Int64("rows", n))
			}
		}
	}
}

func newFileStore(ctx context.Context, cfg config.StorageConfig) (storage.FileStore, error) {
	switch cfg.Backend {
	case "", config.StorageLocal:
		return storage.NewLocalStorage(cfg.MediaRoot)
	case config.StorageS3:
		return storage.NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func serve(ctx context.Context, cfg *config.Config, logr *zap.Logger, router *gin.Engine) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
