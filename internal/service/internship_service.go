package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

type internshipStore interface {
	ListActiveByDepartment(ctx context.Context, department string) ([]models.Internship, error)
}

// InternshipListing is an internship with its skills split out.
type InternshipListing struct {
	models.Internship
	SkillList []string `json:"skills"`
}

// InternshipService serves department internship listings.
type InternshipService struct {
	repo   internshipStore
	logger *zap.Logger
}

// NewInternshipService constructs the service.
func NewInternshipService(repo internshipStore, logger *zap.Logger) *InternshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InternshipService{repo: repo, logger: logger}
}

// ListForDepartment returns active internships for a known department.
func (s *InternshipService) ListForDepartment(ctx context.Context, department string) ([]InternshipListing, error) {
	if _, ok := models.DepartmentName(department); !ok {
		return nil, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "Unknown branch."), RedirectDepartments)
	}
	items, err := s.repo.ListActiveByDepartment(ctx, department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list internships")
	}
	out := make([]InternshipListing, 0, len(items))
	for _, item := range items {
		out = append(out, InternshipListing{Internship: item, SkillList: item.SkillList()})
	}
	return out, nil
}
