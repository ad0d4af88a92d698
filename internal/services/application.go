package services

import (
	"context"
	"strings"

	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app types.Application) (types.Application, error)
	Get(ctx context.Context, id int64) (types.Application, error)
	ListByApplicant(ctx context.Context, userID int64, filter types.ApplicationFilter) ([]types.Application, error)
	ListReceived(ctx context.Context, posterID int64, filter types.ApplicationFilter) ([]types.Application, error)
	UpdateStatus(ctx context.Context, id int64, status types.ApplicationStatus) error
	StatsForApplicant(ctx context.Context, userID int64) (types.ApplicationStats, error)
	StatsForPoster(ctx context.Context, posterID int64) (types.ApplicationStats, error)
}

// PostingLookup resolves the target of an application.
type PostingLookup interface {
	GetOpportunity(ctx context.Context, id int64) (types.Opportunity, error)
	GetScholarship(ctx context.Context, id int64) (types.Scholarship, error)
}

type postingLookup struct {
	opportunities OpportunityRepository
	scholarships  ScholarshipRepository
}

// NewPostingLookup joins the two posting repositories behind PostingLookup.
func NewPostingLookup(opportunities OpportunityRepository, scholarships ScholarshipRepository) PostingLookup {
	return postingLookup{opportunities: opportunities, scholarships: scholarships}
}

func (p postingLookup) GetOpportunity(ctx context.Context, id int64) (types.Opportunity, error) {
	return p.opportunities.Get(ctx, id)
}

func (p postingLookup) GetScholarship(ctx context.Context, id int64) (types.Scholarship, error) {
	return p.scholarships.Get(ctx, id)
}

// ApplicationService handles student applications and their review.
type ApplicationService struct {
	repo     ApplicationRepository
	postings PostingLookup
	events   EventPublisher
}

func NewApplicationService(repo ApplicationRepository, postings PostingLookup, events EventPublisher) *ApplicationService {
	return &ApplicationService{repo: repo, postings: postings, events: events}
}

// Submit files an application for studentID. The target posting must be
// active and, for scholarships, still open.
func (s *ApplicationService) Submit(ctx context.Context, studentID int64, app types.Application) (types.Application, error) {
	var posterID int64
	switch app.Type {
	case types.ApplicationOpportunity:
		if app.OpportunityID == nil {
			return types.Application{}, invalid("opportunity_id is required")
		}
		app.ScholarshipID = nil
		opp, err := s.postings.GetOpportunity(ctx, *app.OpportunityID)
		if err != nil {
			return types.Application{}, err
		}
		if !opp.IsActive {
			return types.Application{}, store.ErrNotFound
		}
		posterID = opp.PostedBy
		app.PostingTitle, app.Organization = opp.Title, opp.Company
	case types.ApplicationScholarship:
		if app.ScholarshipID == nil {
			return types.Application{}, invalid("scholarship_id is required")
		}
		app.OpportunityID = nil
		sch, err := s.postings.GetScholarship(ctx, *app.ScholarshipID)
		if err != nil {
			return types.Application{}, err
		}
		if !sch.IsActive {
			return types.Application{}, store.ErrNotFound
		}
		if sch.ApplicationDeadline.Before(today()) {
			return types.Application{}, invalid("the application deadline has passed")
		}
		posterID = sch.PostedBy
		app.PostingTitle, app.Organization = sch.Title, sch.Organization
	default:
		return types.Application{}, invalid("application_type must be opportunity or scholarship")
	}

	app.UserID = studentID
	app.Status = types.ApplicationSubmitted
	app.CoverLetter = strings.TrimSpace(app.CoverLetter)
	app.ResumeURL = strings.TrimSpace(app.ResumeURL)
	created, err := s.repo.Create(ctx, app)
	if err != nil {
		return types.Application{}, err
	}

	publish(s.events, ctx, mq.Event{
		Type:        mq.EventApplicationReceived,
		ActorID:     studentID,
		RecipientID: posterID,
		SubjectID:   created.ID,
		Data:        map[string]string{"application_type": string(created.Type)},
	})
	return created, nil
}

func (s *ApplicationService) ListMine(ctx context.Context, studentID int64, filter types.ApplicationFilter) ([]types.Application, error) {
	if err := validateApplicationFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListByApplicant(ctx, studentID, filter)
}

func (s *ApplicationService) ListReceived(ctx context.Context, posterID int64, filter types.ApplicationFilter) ([]types.Application, error) {
	if err := validateApplicationFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListReceived(ctx, posterID, filter)
}

// Get is visible to the applicant and to the owner of the posting.
func (s *ApplicationService) Get(ctx context.Context, userID, id int64) (types.Application, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Application{}, err
	}
	switch userID {
	case app.UserID:
		app.Applicant = nil
		return app, nil
	case app.PostedBy:
		return app, nil
	default:
		return types.Application{}, ErrNotPermitted
	}
}

// UpdateStatus moves an application along the review pipeline. Only the
// owner of the posting it targets may do so.
func (s *ApplicationService) UpdateStatus(ctx context.Context, posterID, id int64, status types.ApplicationStatus) (types.Application, error) {
	if !status.Valid() {
		return types.Application{}, invalid("invalid status")
	}
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Application{}, err
	}
	if app.PostedBy != posterID {
		return types.Application{}, ErrNotPermitted
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return types.Application{}, err
	}
	app.Status = status

	publish(s.events, ctx, mq.Event{
		Type:        mq.EventApplicationStatus,
		ActorID:     posterID,
		RecipientID: app.UserID,
		SubjectID:   app.ID,
		Data:        map[string]string{"status": string(status)},
	})
	return app, nil
}

func validateApplicationFilter(filter types.ApplicationFilter) error {
	if filter.Type != "" && !filter.Type.Valid() {
		return invalid("application_type must be opportunity or scholarship")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return invalid("invalid status")
	}
	return nil
}

// Stats counts a student's own applications, or for alumni and mentors the
// applications received on their postings.
func (s *ApplicationService) Stats(ctx context.Context, userID int64, role types.Role) (types.ApplicationStats, error) {
	if role == types.RoleStudent {
		return s.repo.StatsForApplicant(ctx, userID)
	}
	return s.repo.StatsForPoster(ctx, userID)
}
