package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/papers-hub-api/internal/models"
)

const documentColumns = `id, institution, department, term, category, title, subject, year,
       uploader_id, file_ref, mime_type, size_bytes, uploaded_at`

// DocumentRepository handles uploaded document metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores metadata for an uploaded file.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents
	(id, institution, department, term, category, title, subject, year, uploader_id, file_ref, mime_type, size_bytes, uploaded_at)
	VALUES (:id, :institution, :department, :term, :category, :title, :subject, :year, :uploader_id, :file_ref, :mime_type, :size_bytes, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// List returns documents matching the filter, newest first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT " + documentColumns + " FROM documents")
	args := make([]interface{}, 0, 5)
	conditions := make([]string, 0, 5)

	if filter.Institution != "" {
		args = append(args, filter.Institution)
		conditions = append(conditions, fmt.Sprintf("institution = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Term > 0 {
		args = append(args, filter.Term)
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.UploaderID != "" {
		args = append(args, filter.UploaderID)
		conditions = append(conditions, fmt.Sprintf("uploader_id = $%d", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY uploaded_at DESC")

	records := []models.Document{}
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return records, nil
}

// FindOwned loads a document only when it belongs to uploader within institution and department.
func (r *DocumentRepository) FindOwned(ctx context.Context, id, uploaderID, institution, department string) (*models.Document, error) {
	query := "SELECT " + documentColumns + ` FROM documents
	WHERE id = $1 AND uploader_id = $2 AND institution = $3 AND department = $4`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id, uploaderID, institution, department); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes the metadata row. sql.ErrNoRows signals nothing was deleted.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByCategory summarises a scope for dashboards.
func (r *DocumentRepository) CountByCategory(ctx context.Context, institution, department string) (map[string]int, error) {
	const query = `SELECT category, COUNT(*) AS total FROM documents
	WHERE institution = $1 AND department = $2 GROUP BY category`
	rows := []struct {
		Category string `db:"category"`
		Total    int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, institution, department); err != nil {
		return nil, fmt.Errorf("count documents by category: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Category] = row.Total
	}
	return out, nil
}
