package service

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/papers-hub-api/internal/dto"
	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
	"github.com/noah-isme/papers-hub-api/pkg/export"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	FindOwned(ctx context.Context, id, uploaderID, institution, department string) (*models.Document, error)
	Delete(ctx context.Context, id string) error
	CountByCategory(ctx context.Context, institution, department string) (map[string]int, error)
}

type documentFiles interface {
	SaveStream(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Delete(ctx context.Context, key string) error
}

type uploadGrants interface {
	ConsumeUploadGrant(ctx context.Context, grant string) (bool, error)
}

type scopeSubscriptions interface {
	RecordView(ctx context.Context, sess models.Session, department string, term int) error
	RecipientsFor(ctx context.Context, scope models.Scope) ([]string, error)
}

// sniffLen bounds how much of an upload is inspected to identify its type.
const sniffLen = 3072

// DocumentUpload carries the uploaded stream and its client-declared metadata.
// The declared MimeType is informational; the stored type is sniffed.
type DocumentUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.Reader
}

// DocumentServiceConfig holds upload limits.
type DocumentServiceConfig struct {
	Prefix                string
	MaxFileSize           int64
	AllowedMIMEs          []string
	StudentUploadPassword string
	MediaBaseURL          string
}

// DocumentService manages uploads, listings and deletes.
type DocumentService struct {
	repo          documentStore
	files         documentFiles
	subscriptions scopeSubscriptions
	notifier      UploadNotifier
	grants        uploadGrants
	cache         *CacheService
	metrics       *MetricsService
	audit         auditLogger
	validate      *validator.Validate
	logger        *zap.Logger
	cfg           DocumentServiceConfig
	mimeSet       map[string]struct{}
	passwordHash  []byte
}

// NewDocumentService constructs the service and hashes the student upload password.
func NewDocumentService(repo documentStore, files documentFiles, subscriptions scopeSubscriptions, notifier UploadNotifier, grants uploadGrants, cache *CacheService, metrics *MetricsService, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg DocumentServiceConfig) (*DocumentService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "question_papers/"
	}
	if !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 25 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/zip",
			"image/jpeg",
			"image/png",
			"text/plain",
		}
	}
	if grants == nil {
		return nil, errors.New("upload grant store is required")
	}
	if cfg.StudentUploadPassword == "" {
		return nil, errors.New("student upload password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.StudentUploadPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash student upload password: %w", err)
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &DocumentService{
		repo:          repo,
		files:         files,
		subscriptions: subscriptions,
		notifier:      notifier,
		grants:        grants,
		cache:         cache,
		metrics:       metrics,
		audit:         audit,
		validate:      validate,
		logger:        logger,
		cfg:           cfg,
		mimeSet:       mimeSet,
		passwordHash:  hash,
	}, nil
}

// TeacherUpload stores a document in the teacher's own department.
func (s *DocumentService) TeacherUpload(ctx context.Context, sess models.Session, department string, term int, category string, req dto.UploadDocumentRequest, upload DocumentUpload, meta RequestMeta) (*models.Document, models.Session, error) {
	if err := RequireTeacherOf(sess, department); err != nil {
		return nil, sess, err
	}
	categoryName, ok := models.CategoryName(category)
	if !ok {
		return nil, sess, appErrors.Clone(appErrors.ErrValidation, "unknown document type")
	}
	doc := &models.Document{
		Institution: sess.Institution,
		Department:  department,
		Term:        term,
		Category:    category,
		UploaderID:  sess.UploaderID(),
	}
	prepared, err := s.prepare(doc.Term, req, upload)
	if err != nil {
		return nil, sess, err
	}
	if err := s.persist(ctx, doc, prepared, models.RoleTeacher, meta); err != nil {
		return nil, sess, err
	}
	return doc, sess.WithFlash(models.FlashSuccess, fmt.Sprintf("%s uploaded successfully!", categoryName)), nil
}

// VerifyStudentUpload unlocks one student upload when the shared password matches.
func (s *DocumentService) VerifyStudentUpload(ctx context.Context, sess models.Session, department string, term int, req dto.UploadPasswordRequest) (models.Session, error) {
	if err := checkScope(department, term); err != nil {
		return sess, err
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		s.logger.Info("student upload password rejected", zap.String("email", sess.Email))
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrInvalidCredentials, "Incorrect password!"), StudentUploadVerifyRedirect(department, term))
	}
	return sess.WithUploadGrant(uuid.NewString()).WithFlash(models.FlashSuccess, "Verification successful! You can now upload."), nil
}

// StudentUpload stores a document for a verified student. The grant issued by
// VerifyStudentUpload is spent once the upload passes validation.
func (s *DocumentService) StudentUpload(ctx context.Context, sess models.Session, department string, term int, req dto.UploadDocumentRequest, upload DocumentUpload, meta RequestMeta) (*models.Document, models.Session, error) {
	if err := checkScope(department, term); err != nil {
		return nil, sess, err
	}
	notVerified := appErrors.WithRedirect(appErrors.Clone(appErrors.ErrUploadNotVerified, "Please verify with password first."), StudentUploadVerifyRedirect(department, term))
	if !sess.UploadVerified || sess.UploadGrant == "" {
		return nil, sess, notVerified
	}
	if !sess.HasInstitution() {
		return nil, sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrInstitutionRequired, "Please select your college first."), RedirectInstitutionSelection)
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if _, ok := models.CategoryName(category); !ok {
		return nil, sess, appErrors.Clone(appErrors.ErrValidation, "unknown document type")
	}
	doc := &models.Document{
		Institution: sess.Institution,
		Department:  department,
		Term:        term,
		Category:    category,
		UploaderID:  sess.UploaderID(),
	}
	prepared, err := s.prepare(doc.Term, req, upload)
	if err != nil {
		return nil, sess, err
	}
	first, err := s.grants.ConsumeUploadGrant(ctx, sess.UploadGrant)
	if err != nil {
		return nil, sess, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify upload grant")
	}
	if !first {
		return nil, sess.WithUploadGrant(""), notVerified
	}
	next := sess.WithUploadGrant("")
	if err := s.persist(ctx, doc, prepared, models.RoleStudent, meta); err != nil {
		return nil, next, err
	}
	return doc, next.WithFlash(models.FlashSuccess, "Document uploaded successfully!"), nil
}

// ListScope returns a scope's documents and subscribes the viewing student.
func (s *DocumentService) ListScope(ctx context.Context, sess models.Session, department string, term int) (*dto.DocumentScopeResponse, error) {
	if err := checkScope(department, term); err != nil {
		return nil, err
	}
	departmentName, _ := models.DepartmentName(department)
	if !sess.HasInstitution() {
		return nil, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrInstitutionRequired, "Please select your college first."), RedirectInstitutionSelection)
	}
	scope := models.Scope{Institution: sess.Institution, Department: department, Term: term}

	docs, hit := s.cache.GetScope(ctx, scope)
	if !hit {
		var err error
		docs, err = s.repo.List(ctx, models.DocumentFilter{Institution: scope.Institution, Department: scope.Department, Term: scope.Term})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
		}
		s.cache.SetScope(ctx, scope, docs)
	}

	if err := s.subscriptions.RecordView(ctx, sess, department, term); err != nil {
		s.logger.Warn("failed to record scope view", zap.String("email", sess.Email), zap.Error(err))
	}

	resp := &dto.DocumentScopeResponse{
		Institution:     scope.Institution,
		InstitutionName: sess.InstitutionName,
		Department:      department,
		DepartmentName:  departmentName,
		Term:            term,
		TermName:        models.TermName(term),
		Documents:       s.withLinks(docs),
		Notes:           []models.Document{},
		Syllabus:        []models.Document{},
		Midterm:         []models.Document{},
		Model:           []models.Document{},
		Cached:          hit,
	}
	for _, d := range resp.Documents {
		switch d.Category {
		case "notes":
			resp.Notes = append(resp.Notes, d)
		case "syllabus":
			resp.Syllabus = append(resp.Syllabus, d)
		case "midterm":
			resp.Midterm = append(resp.Midterm, d)
		case "model":
			resp.Model = append(resp.Model, d)
		}
	}
	return resp, nil
}

// ListOwn returns the teacher's uploads within their institution and department.
func (s *DocumentService) ListOwn(ctx context.Context, sess models.Session, department string) ([]models.Document, error) {
	if err := RequireTeacherOf(sess, department); err != nil {
		return nil, err
	}
	docs, err := s.repo.List(ctx, models.DocumentFilter{
		Institution: sess.Institution,
		Department:  department,
		UploaderID:  sess.UploaderID(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list uploads")
	}
	return s.withLinks(docs), nil
}

// Dashboard summarises the teacher's department.
func (s *DocumentService) Dashboard(ctx context.Context, sess models.Session, department string) (*dto.TeacherDashboardResponse, error) {
	if err := RequireTeacherOf(sess, department); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByCategory(ctx, sess.Institution, department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard")
	}
	catalog := models.DefaultCatalog()
	return &dto.TeacherDashboardResponse{
		Username:        sess.Email,
		DisplayName:     sess.DisplayName(),
		Institution:     sess.Institution,
		InstitutionName: sess.InstitutionName,
		Department:      department,
		DepartmentName:  sess.DepartmentName,
		Terms:           catalog.Terms,
		Categories:      catalog.Categories,
		CategoryCounts:  counts,
	}, nil
}

// Export renders the teacher's uploads as CSV or PDF.
func (s *DocumentService) Export(ctx context.Context, sess models.Session, department, format string) ([]byte, string, string, error) {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	docs, err := s.ListOwn(ctx, sess, department)
	if err != nil {
		return nil, "", "", err
	}
	data := export.Dataset{
		Title:   fmt.Sprintf("Uploads by %s - %s", sess.DisplayName(), sess.DepartmentName),
		Headers: []string{"Title", "Type", "Subject", "Semester", "Year", "Size (bytes)", "Uploaded At", "Link"},
		Rows:    make([][]string, 0, len(docs)),
	}
	for _, d := range docs {
		category, _ := models.CategoryName(d.Category)
		data.Rows = append(data.Rows, []string{
			d.Title,
			category,
			d.Subject,
			models.TermName(d.Term),
			strconv.Itoa(d.Year),
			strconv.FormatInt(d.SizeBytes, 10),
			d.UploadedAt.UTC().Format("2006-01-02 15:04"),
			d.DownloadURL,
		})
	}
	out, err := exporter.Render(data)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s-%s-uploads.%s", sess.Institution, department, exporter.Extension())
	return out, filename, exporter.ContentType(), nil
}

// Delete removes a document owned by the teacher in their institution and department.
func (s *DocumentService) Delete(ctx context.Context, sess models.Session, id string, meta RequestMeta) (models.Session, error) {
	if !sess.IsTeacher() {
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrForbidden, "Please login as teacher first."), TeacherLoginRedirect(sess.Institution))
	}
	manage := fmt.Sprintf("/teacher/%s/documents", sess.Department)
	doc, err := s.repo.FindOwned(ctx, id, sess.UploaderID(), sess.Institution, sess.Department)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "Paper not found or you do not have permission to delete it."), manage)
		}
		return sess, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "Paper not found or you do not have permission to delete it."), manage)
		}
		return sess, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if err := s.files.Delete(ctx, doc.FileRef); err != nil {
		s.logger.Warn("failed to delete document file", zap.String("file_ref", doc.FileRef), zap.Error(err))
	}
	s.cache.InvalidateScope(ctx, doc.Scope())
	emitAudit(ctx, s.audit, s.logger, sess.UploaderID(), models.AuditActionDocumentDelete, "document", &doc.ID, meta, map[string]string{
		"title":    doc.Title,
		"file_ref": doc.FileRef,
	})
	return sess.WithFlash(models.FlashSuccess, "Paper deleted successfully!"), nil
}

// preparedUpload is an upload that passed validation and type sniffing.
type preparedUpload struct {
	req      dto.UploadDocumentRequest
	content  io.Reader
	mimeType string
	key      string
}

func (s *DocumentService) prepare(term int, req dto.UploadDocumentRequest, upload DocumentUpload) (*preparedUpload, error) {
	if !models.ValidTerm(term) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("term must be between %d and %d", models.MinTerm, models.MaxTerm))
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title, subject and year are required")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	reader := bufio.NewReaderSize(upload.Content, sniffLen)
	mimeType, ext, err := sniff(reader)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		s.logger.Info("upload type rejected",
			zap.String("detected", mimeType),
			zap.String("declared", upload.MimeType),
			zap.String("filename", upload.Filename))
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}
	return &preparedUpload{
		req:      req,
		content:  reader,
		mimeType: mimeType,
		key:      s.cfg.Prefix + storedFilename(upload.Filename, ext),
	}, nil
}

func (s *DocumentService) persist(ctx context.Context, doc *models.Document, p *preparedUpload, role models.Role, meta RequestMeta) error {
	written, err := s.files.SaveStream(ctx, p.key, io.LimitReader(p.content, s.cfg.MaxFileSize+1), p.mimeType)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if written > s.cfg.MaxFileSize {
		s.discard(ctx, p.key)
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	doc.Title = p.req.Title
	doc.Subject = p.req.Subject
	doc.Year = p.req.Year
	doc.FileRef = p.key
	doc.MimeType = p.mimeType
	doc.SizeBytes = written
	if err := s.repo.Create(ctx, doc); err != nil {
		s.discard(ctx, p.key)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document")
	}
	doc.DownloadURL = DownloadURL(s.cfg.MediaBaseURL, doc.FileRef)

	s.cache.InvalidateScope(ctx, doc.Scope())
	s.metrics.RecordUpload(doc.Category, string(role))
	emitAudit(ctx, s.audit, s.logger, doc.UploaderID, models.AuditActionDocumentUpload, "document", &doc.ID, meta, map[string]string{
		"title":    doc.Title,
		"category": doc.Category,
		"scope":    fmt.Sprintf("%s/%s/%d", doc.Institution, doc.Department, doc.Term),
	})
	s.notify(ctx, *doc)
	return nil
}

func (s *DocumentService) notify(ctx context.Context, doc models.Document) {
	if s.notifier == nil {
		return
	}
	recipients, err := s.subscriptions.RecipientsFor(ctx, doc.Scope())
	if err != nil {
		s.logger.Warn("failed to resolve notification recipients", zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	s.notifier.Notify(context.WithoutCancel(ctx), doc, recipients)
}

// sniff identifies the upload from its leading bytes and returns the MIME type
// without parameters plus the canonical extension for that type.
func sniff(r *bufio.Reader) (string, string, error) {
	head, err := r.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if len(head) == 0 {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	detected := mimetype.Detect(head)
	mimeType := detected.String()
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType)), detected.Extension(), nil
}

// checkScope validates the department and term taken from the request path.
func checkScope(department string, term int) error {
	if _, ok := models.DepartmentName(department); !ok {
		return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "Unknown branch."), RedirectDepartments)
	}
	if !models.ValidTerm(term) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("term must be between %d and %d", models.MinTerm, models.MaxTerm))
	}
	return nil
}

func (s *DocumentService) discard(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to discard stored file", zap.String("file_ref", key), zap.Error(err))
	}
}

func (s *DocumentService) withLinks(docs []models.Document) []models.Document {
	out := make([]models.Document, len(docs))
	for i, d := range docs {
		d.DownloadURL = DownloadURL(s.cfg.MediaBaseURL, d.FileRef)
		out[i] = d
	}
	return out
}

// storedFilename keeps a readable stem of the client's name but always takes
// the extension from the sniffed type.
func storedFilename(original, ext string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	name := sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "document"
	}
	if len(name) > 60 {
		name = name[:60]
	}
	ext = sanitizeExt(ext)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s_%s%s", uuid.NewString()[:8], name, ext)
}

func sanitize(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func sanitizeExt(ext string) string {
	clean := sanitize(strings.TrimPrefix(ext, "."))
	if clean == "" {
		return ""
	}
	return "." + clean
}
