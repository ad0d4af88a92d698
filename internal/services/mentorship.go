package services

import (
	"context"
	"errors"
	"strings"

	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
)

const (
	defaultMaxMentees      = 5
	defaultDurationWeeks   = 12
	defaultSessionDuration = 60
)

type MentorshipRepository interface {
	ListPrograms(ctx context.Context, search string, offset, limit int) ([]types.MentorshipProgram, int, error)
	GetProgram(ctx context.Context, id int64) (types.MentorshipProgram, error)
	CreateProgram(ctx context.Context, p types.MentorshipProgram) (types.MentorshipProgram, error)
	ListMentors(ctx context.Context, search string) ([]types.MentorSummary, error)
	CreateSession(ctx context.Context, s types.MentorshipSession) (types.MentorshipSession, error)
	GetSession(ctx context.Context, id int64) (types.MentorshipSession, error)
	ListSessions(ctx context.Context, userID int64, asMentee bool, status types.SessionStatus) ([]types.MentorshipSession, error)
	UpdateSession(ctx context.Context, id int64, update types.SessionUpdate) (types.MentorshipSession, error)
	SetFeedback(ctx context.Context, id int64, rating *int, comment string) error
}

// MemberLookup resolves active users by id.
type MemberLookup interface {
	GetActiveByID(ctx context.Context, id int64) (types.User, error)
}

type MentorshipService struct {
	repo    MentorshipRepository
	members MemberLookup
	events  EventPublisher
}

func NewMentorshipService(repo MentorshipRepository, members MemberLookup, events EventPublisher) *MentorshipService {
	return &MentorshipService{repo: repo, members: members, events: events}
}

func (s *MentorshipService) ListPrograms(ctx context.Context, search string, offset, limit int) ([]types.MentorshipProgram, int, error) {
	return s.repo.ListPrograms(ctx, search, offset, clampLimit(limit))
}

func (s *MentorshipService) CreateProgram(ctx context.Context, mentorID int64, p types.MentorshipProgram) (types.MentorshipProgram, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	if p.Title == "" || p.Description == "" {
		return types.MentorshipProgram{}, invalid("title and description are required")
	}
	areas := make([]string, 0, len(p.ExpertiseAreas))
	for _, area := range p.ExpertiseAreas {
		if area = strings.TrimSpace(area); area != "" {
			areas = append(areas, area)
		}
	}
	if len(areas) == 0 {
		return types.MentorshipProgram{}, invalid("expertise_areas must list at least one area")
	}
	p.ExpertiseAreas = areas

	if p.MaxMentees == 0 {
		p.MaxMentees = defaultMaxMentees
	}
	if p.DurationWeeks == 0 {
		p.DurationWeeks = defaultDurationWeeks
	}
	if p.MaxMentees < 0 || p.DurationWeeks < 0 {
		return types.MentorshipProgram{}, invalid("max_mentees and duration_weeks must be positive")
	}
	p.MentorID = mentorID
	p.IsActive = true
	return s.repo.CreateProgram(ctx, p)
}

func (s *MentorshipService) ListMentors(ctx context.Context, search string) ([]types.MentorSummary, error) {
	return s.repo.ListMentors(ctx, search)
}

// RequestSession records a mentee's request. The mentor must be an active
// alumnus or mentor, and a referenced program must be theirs.
func (s *MentorshipService) RequestSession(ctx context.Context, menteeID int64, session types.MentorshipSession) (types.MentorshipSession, error) {
	session.Title = strings.TrimSpace(session.Title)
	if session.MentorID == 0 || session.Title == "" || session.SessionType == "" {
		return types.MentorshipSession{}, invalid("mentor_id, title and session_type are required")
	}
	if !session.SessionType.Valid() {
		return types.MentorshipSession{}, invalid("invalid session_type")
	}
	if session.MentorID == menteeID {
		return types.MentorshipSession{}, invalid("cannot request a session with yourself")
	}
	if session.DurationMinutes == 0 {
		session.DurationMinutes = defaultSessionDuration
	}
	if session.DurationMinutes < 0 {
		return types.MentorshipSession{}, invalid("duration_minutes must be positive")
	}

	mentor, err := s.members.GetActiveByID(ctx, session.MentorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.MentorshipSession{}, invalid("mentor not found")
		}
		return types.MentorshipSession{}, err
	}
	if mentor.Role != types.RoleAlumni && mentor.Role != types.RoleMentor {
		return types.MentorshipSession{}, invalid("mentor not found")
	}

	if session.ProgramID != nil {
		program, err := s.repo.GetProgram(ctx, *session.ProgramID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.MentorshipSession{}, invalid("program not found")
			}
			return types.MentorshipSession{}, err
		}
		if program.MentorID != session.MentorID || !program.IsActive {
			return types.MentorshipSession{}, invalid("program does not belong to this mentor")
		}
	}

	session.MenteeID = menteeID
	created, err := s.repo.CreateSession(ctx, session)
	if err != nil {
		return types.MentorshipSession{}, err
	}

	publish(s.events, ctx, mq.Event{
		Type:        mq.EventMentorshipRequested,
		ActorID:     menteeID,
		RecipientID: created.MentorID,
		SubjectID:   created.ID,
		Data:        map[string]string{"session_type": string(created.SessionType)},
	})
	return created, nil
}

// ListSessions shows students their requests and everyone else the sessions
// they mentor.
func (s *MentorshipService) ListSessions(ctx context.Context, userID int64, role types.Role, status types.SessionStatus) ([]types.MentorshipSession, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("invalid status")
	}
	return s.repo.ListSessions(ctx, userID, role == types.RoleStudent, status)
}

// UpdateSession lets either participant edit a session. Scheduling and
// cancelling belong to the mentor alone.
func (s *MentorshipService) UpdateSession(ctx context.Context, userID, id int64, update types.SessionUpdate) (types.MentorshipSession, error) {
	if update.Empty() {
		return types.MentorshipSession{}, invalid("no fields to update")
	}
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return types.MentorshipSession{}, err
	}
	if !session.IsParticipant(userID) {
		return types.MentorshipSession{}, ErrNotPermitted
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return types.MentorshipSession{}, invalid("invalid status")
		}
		if update.Status.MentorOnly() && userID != session.MentorID {
			return types.MentorshipSession{}, ErrNotPermitted
		}
	}
	if update.DurationMinutes != nil && *update.DurationMinutes <= 0 {
		return types.MentorshipSession{}, invalid("duration_minutes must be positive")
	}
	return s.repo.UpdateSession(ctx, id, update)
}

// LeaveFeedback records the mentee's rating of a completed session.
func (s *MentorshipService) LeaveFeedback(ctx context.Context, menteeID, id int64, rating int, comment string) (types.MentorshipSession, error) {
	if rating < 1 || rating > 5 {
		return types.MentorshipSession{}, invalid("rating must be between 1 and 5")
	}
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return types.MentorshipSession{}, err
	}
	if session.MenteeID != menteeID {
		return types.MentorshipSession{}, ErrNotPermitted
	}
	if session.Status != types.SessionCompleted {
		return types.MentorshipSession{}, invalid("feedback can only be left on completed sessions")
	}
	comment = strings.TrimSpace(comment)
	if err := s.repo.SetFeedback(ctx, id, &rating, comment); err != nil {
		return types.MentorshipSession{}, err
	}
	session.FeedbackRating = &rating
	session.FeedbackComment = comment
	return session, nil
}
