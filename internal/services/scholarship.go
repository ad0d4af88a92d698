package services

import (
	"context"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
)

type ScholarshipRepository interface {
	List(ctx context.Context, filter types.PostingFilter) ([]types.Scholarship, int, error)
	ListEligible(ctx context.Context, studentID int64) ([]types.Scholarship, error)
	ListByPoster(ctx context.Context, userID int64) ([]types.Scholarship, error)
	Get(ctx context.Context, id int64) (types.Scholarship, error)
	Create(ctx context.Context, s types.Scholarship) (types.Scholarship, error)
	Update(ctx context.Context, id int64, update types.ScholarshipUpdate) (types.Scholarship, error)
}

type ScholarshipService struct {
	repo ScholarshipRepository
}

func NewScholarshipService(repo ScholarshipRepository) *ScholarshipService {
	return &ScholarshipService{repo: repo}
}

func (s *ScholarshipService) List(ctx context.Context, filter types.PostingFilter) ([]types.Scholarship, int, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

func (s *ScholarshipService) Eligible(ctx context.Context, studentID int64) ([]types.Scholarship, error) {
	return s.repo.ListEligible(ctx, studentID)
}

func (s *ScholarshipService) ListMine(ctx context.Context, userID int64) ([]types.Scholarship, error) {
	return s.repo.ListByPoster(ctx, userID)
}

func (s *ScholarshipService) Get(ctx context.Context, id int64) (types.Scholarship, error) {
	sch, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Scholarship{}, err
	}
	if !sch.IsActive {
		return types.Scholarship{}, store.ErrNotFound
	}
	return sch, nil
}

func (s *ScholarshipService) Create(ctx context.Context, posterID int64, sch types.Scholarship) (types.Scholarship, error) {
	sch.Title = strings.TrimSpace(sch.Title)
	sch.Organization = strings.TrimSpace(sch.Organization)
	sch.Description = strings.TrimSpace(sch.Description)
	sch.EligibilityCriteria = strings.TrimSpace(sch.EligibilityCriteria)
	if sch.Title == "" || sch.Organization == "" || sch.Description == "" ||
		sch.EligibilityCriteria == "" || sch.ApplicationDeadline.IsZero() {
		return types.Scholarship{}, invalid("title, organization, description, eligibility_criteria and application_deadline are required")
	}
	if sch.Amount != nil && *sch.Amount < 0 {
		return types.Scholarship{}, invalid("amount cannot be negative")
	}
	if sch.ApplicationDeadline.Before(today()) {
		return types.Scholarship{}, invalid("application_deadline cannot be in the past")
	}
	sch.PostedBy = posterID
	return s.repo.Create(ctx, sch)
}

func (s *ScholarshipService) Update(ctx context.Context, userID, id int64, update types.ScholarshipUpdate) (types.Scholarship, error) {
	sch, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Scholarship{}, err
	}
	if sch.PostedBy != userID {
		return types.Scholarship{}, ErrNotPermitted
	}
	if update.Amount != nil && *update.Amount < 0 {
		return types.Scholarship{}, invalid("amount cannot be negative")
	}
	for _, field := range []*string{update.Title, update.Organization, update.Description, update.EligibilityCriteria} {
		if field != nil && strings.TrimSpace(*field) == "" {
			return types.Scholarship{}, invalid("required fields cannot be empty")
		}
	}
	return s.repo.Update(ctx, id, update)
}

// today is midnight UTC, matching how YYYY-MM-DD deadlines are parsed.
func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
