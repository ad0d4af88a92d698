package services

import (
	"context"
	"strings"

	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
)

// OpportunityRepository defines persistence operations for opportunities.
type OpportunityRepository interface {
	List(ctx context.Context, filter types.PostingFilter) ([]types.Opportunity, int, error)
	ListByPoster(ctx context.Context, userID int64) ([]types.Opportunity, error)
	Get(ctx context.Context, id int64) (types.Opportunity, error)
	Create(ctx context.Context, opp types.Opportunity) (types.Opportunity, error)
	Update(ctx context.Context, id int64, update types.OpportunityUpdate) (types.Opportunity, error)
	Deactivate(ctx context.Context, id int64) error
}

// OpportunityService encapsulates job and internship postings.
type OpportunityService struct {
	repo OpportunityRepository
}

func NewOpportunityService(repo OpportunityRepository) *OpportunityService {
	return &OpportunityService{repo: repo}
}

func (s *OpportunityService) List(ctx context.Context, filter types.PostingFilter) ([]types.Opportunity, int, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, invalid("type must be job or internship")
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

// Get hides withdrawn postings.
func (s *OpportunityService) Get(ctx context.Context, id int64) (types.Opportunity, error) {
	opp, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Opportunity{}, err
	}
	if !opp.IsActive {
		return types.Opportunity{}, store.ErrNotFound
	}
	return opp, nil
}

func (s *OpportunityService) ListMine(ctx context.Context, userID int64) ([]types.Opportunity, error) {
	return s.repo.ListByPoster(ctx, userID)
}

func (s *OpportunityService) Create(ctx context.Context, posterID int64, opp types.Opportunity) (types.Opportunity, error) {
	opp.Title = strings.TrimSpace(opp.Title)
	opp.Company = strings.TrimSpace(opp.Company)
	opp.Description = strings.TrimSpace(opp.Description)
	if opp.Title == "" || opp.Company == "" || opp.Description == "" || opp.Type == "" {
		return types.Opportunity{}, invalid("title, company, type and description are required")
	}
	if !opp.Type.Valid() {
		return types.Opportunity{}, invalid("type must be job or internship")
	}
	opp.PostedBy = posterID
	opp.IsActive = true
	return s.repo.Create(ctx, opp)
}

func (s *OpportunityService) Update(ctx context.Context, userID, id int64, update types.OpportunityUpdate) (types.Opportunity, error) {
	if err := s.authorize(ctx, userID, id); err != nil {
		return types.Opportunity{}, err
	}
	if update.Type != nil && !update.Type.Valid() {
		return types.Opportunity{}, invalid("type must be job or internship")
	}
	for _, field := range []*string{update.Title, update.Company, update.Description} {
		if field != nil && strings.TrimSpace(*field) == "" {
			return types.Opportunity{}, invalid("title, company and description cannot be empty")
		}
	}
	return s.repo.Update(ctx, id, update)
}

// Delete withdraws the posting. Rows are kept so existing applications still resolve.
func (s *OpportunityService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.authorize(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, id)
}

func (s *OpportunityService) authorize(ctx context.Context, userID, id int64) error {
	opp, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if opp.PostedBy != userID {
		return ErrNotPermitted
	}
	return nil
}
