package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/pkg/mail"
)

const defaultAttachmentLimit int64 = 5 * 1024 * 1024

var notificationBody = template.Must(template.New("upload").Parse(`Hello Student,

A new document has been uploaded to {{.Institution}} College:

📓 Type: {{.Category}}
📝 Title: {{.Title}}
📚 Subject: {{.Subject}}
🏫 Branch: {{.Department}}
📅 Semester: {{.Term}}
👨‍🏫 Uploaded by: {{.Uploader}}

📥 Download Link: {{.Link}}

{{if .Attached}}The document is attached to this email.{{else}}The document is too large to attach. Please use the link above.{{end}}

Happy Learning!
Question Papers Hub Team
`))

// UploadNotifier announces a stored document to its recipients.
type UploadNotifier interface {
	Notify(ctx context.Context, doc models.Document, recipients []string)
}

type fileReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Size(ctx context.Context, key string) (int64, error)
}

// NotificationConfig tunes message content.
type NotificationConfig struct {
	AttachmentLimitBytes int64
	MediaBaseURL         string
}

// NotificationService emails upload announcements.
type NotificationService struct {
	mailer  mail.Mailer
	files   fileReader
	metrics *MetricsService
	logger  *zap.Logger
	cfg     NotificationConfig
}

// NewNotificationService constructs the service.
func NewNotificationService(mailer mail.Mailer, files fileReader, metrics *MetricsService, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AttachmentLimitBytes <= 0 {
		cfg.AttachmentLimitBytes = defaultAttachmentLimit
	}
	return &NotificationService{mailer: mailer, files: files, metrics: metrics, logger: logger, cfg: cfg}
}

// Notify sends the announcement and swallows every failure.
func (s *NotificationService) Notify(ctx context.Context, doc models.Document, recipients []string) {
	if err := s.Deliver(ctx, doc, recipients); err != nil {
		s.logger.Error("upload notification failed",
			zap.String("document_id", doc.ID),
			zap.Int("recipients", len(recipients)),
			zap.Error(err))
	}
}

// Deliver builds and sends one message to all recipients.
func (s *NotificationService) Deliver(ctx context.Context, doc models.Document, recipients []string) error {
	if len(recipients) == 0 {
		s.metrics.RecordNotification(OutcomeSkipped, false)
		return nil
	}
	msg, err := s.Build(ctx, doc, recipients)
	if err != nil {
		s.metrics.RecordNotification(OutcomeFailure, false)
		return err
	}
	attached := len(msg.Attachments) > 0
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.RecordNotification(OutcomeFailure, attached)
		return fmt.Errorf("send upload notification: %w", err)
	}
	s.metrics.RecordNotification(OutcomeSuccess, attached)
	s.logger.Info("upload notification sent",
		zap.String("document_id", doc.ID),
		zap.Int("recipients", len(recipients)),
		zap.Bool("attached", attached))
	return nil
}

// Build renders the message. The file is attached only when strictly smaller
// than the configured limit; attachment I/O errors fall back to link-only.
func (s *NotificationService) Build(ctx context.Context, doc models.Document, recipients []string) (mail.Message, error) {
	category, ok := models.CategoryName(doc.Category)
	if !ok {
		category = "Document"
	}
	department, ok := models.DepartmentName(doc.Department)
	if !ok {
		department = strings.ToUpper(doc.Department)
	}
	content, attached := s.attachment(ctx, doc)

	var body bytes.Buffer
	err := notificationBody.Execute(&body, map[string]interface{}{
		"Institution": models.ShortInstitutionName(doc.Institution),
		"Category":    category,
		"Title":       doc.Title,
		"Subject":     doc.Subject,
		"Department":  department,
		"Term":        models.TermName(doc.Term),
		"Uploader":    models.TitleCase(doc.UploaderID),
		"Link":        DownloadURL(s.cfg.MediaBaseURL, doc.FileRef),
		"Attached":    attached,
	})
	if err != nil {
		return mail.Message{}, fmt.Errorf("render upload notification: %w", err)
	}

	msg := mail.Message{
		To:      append([]string(nil), recipients...),
		Subject: fmt.Sprintf("📚 New %s Uploaded - %s", category, department),
		Body:    body.String(),
	}
	if attached {
		msg.Attach(path.Base(doc.FileRef), content, doc.MimeType)
	}
	return msg, nil
}

func (s *NotificationService) attachment(ctx context.Context, doc models.Document) ([]byte, bool) {
	if s.files == nil || doc.FileRef == "" {
		return nil, false
	}
	size := doc.SizeBytes
	if size <= 0 {
		var err error
		size, err = s.files.Size(ctx, doc.FileRef)
		if err != nil {
			s.logger.Warn("attachment size lookup failed", zap.String("file_ref", doc.FileRef), zap.Error(err))
			return nil, false
		}
	}
	if size >= s.cfg.AttachmentLimitBytes {
		return nil, false
	}
	rc, err := s.files.Open(ctx, doc.FileRef)
	if err != nil {
		s.logger.Warn("attachment open failed", zap.String("file_ref", doc.FileRef), zap.Error(err))
		return nil, false
	}
	defer rc.Close()
	content, err := io.ReadAll(io.LimitReader(rc, s.cfg.AttachmentLimitBytes))
	if err != nil {
		s.logger.Warn("attachment read failed", zap.String("file_ref", doc.FileRef), zap.Error(err))
		return nil, false
	}
	return content, true
}

// DownloadURL joins the media base URL and a stored file reference.
func DownloadURL(base, fileRef string) string {
	if base == "" {
		return fileRef
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(fileRef, "/")
}
