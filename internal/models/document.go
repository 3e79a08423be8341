package models

import "time"

// Document is an uploaded study material scoped to institution, department and term.
type Document struct {
	ID          string    `db:"id" json:"id"`
	Institution string    `db:"institution" json:"institution"`
	Department  string    `db:"department" json:"department"`
	Term        int       `db:"term" json:"term"`
	Category    string    `db:"category" json:"category"`
	Title       string    `db:"title" json:"title"`
	Subject     string    `db:"subject" json:"subject"`
	Year        int       `db:"year" json:"year"`
	UploaderID  string    `db:"uploader_id" json:"uploaderId"`
	FileRef     string    `db:"file_ref" json:"fileRef"`
	MimeType    string    `db:"mime_type" json:"mimeType"`
	SizeBytes   int64     `db:"size_bytes" json:"sizeBytes"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploadedAt"`
	DownloadURL string    `db:"-" json:"downloadUrl,omitempty"`
}

// Scope identifies the (institution, department, term) partition.
type Scope struct {
	Institution string `json:"institution"`
	Department  string `json:"department"`
	Term        int    `json:"term"`
}

// Scope returns the partition the document belongs to.
func (d Document) Scope() Scope {
	return Scope{Institution: d.Institution, Department: d.Department, Term: d.Term}
}

// DocumentFilter narrows listing queries. Empty fields are ignored.
type DocumentFilter struct {
	Institution string
	Department  string
	Term        int
	Category    string
	UploaderID  string
}
