package models

import (
	"strings"
	"time"
)

// Internship is an opportunity listed for a department.
type Internship struct {
	ID           string    `db:"id" json:"id"`
	CompanyName  string    `db:"company_name" json:"companyName"`
	Role         string    `db:"role" json:"role"`
	LogoInitials string    `db:"logo_initials" json:"logoInitials"`
	Location     string    `db:"location" json:"location"`
	Duration     string    `db:"duration" json:"duration"`
	Department   string    `db:"department" json:"department"`
	Description  string    `db:"description" json:"description"`
	Skills       string    `db:"skills" json:"-"`
	ApplyLink    string    `db:"apply_link" json:"applyLink"`
	Active       bool      `db:"is_active" json:"active"`
	PostedAt     time.Time `db:"posted_at" json:"postedAt"`
}

// SkillList splits the comma separated skills column.
func (i Internship) SkillList() []string {
	if strings.TrimSpace(i.Skills) == "" {
		return []string{}
	}
	parts := strings.Split(i.Skills, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
