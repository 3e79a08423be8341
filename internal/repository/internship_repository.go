package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/papers-hub-api/internal/models"
)

// InternshipRepository reads seeded internship listings.
type InternshipRepository struct {
	db *sqlx.DB
}

// NewInternshipRepository constructs the repository.
func NewInternshipRepository(db *sqlx.DB) *InternshipRepository {
	return &InternshipRepository{db: db}
}

// ListActiveByDepartment returns active listings for a department, newest first.
func (r *InternshipRepository) ListActiveByDepartment(ctx context.Context, department string) ([]models.Internship, error) {
	const query = `SELECT id, company_name, role, logo_initials, location, duration, department,
       description, skills, apply_link, is_active, posted_at
	FROM internships WHERE department = $1 AND is_active = TRUE ORDER BY posted_at DESC, company_name`
	items := []models.Internship{}
	if err := r.db.SelectContext(ctx, &items, query, department); err != nil {
		return nil, fmt.Errorf("list internships: %w", err)
	}
	return items, nil
}
