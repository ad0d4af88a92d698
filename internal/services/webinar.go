package services

import (
	"context"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/alumni-connect/apiserver/types"
)

const (
	defaultWebinarDuration = 90
	defaultWebinarCapacity = 100
)

type WebinarRepository interface {
	List(ctx context.Context, upcomingOnly bool, search string, offset, limit int) ([]types.Webinar, int, error)
	ListByHost(ctx context.Context, hostID int64) ([]types.Webinar, error)
	ListRegistrations(ctx context.Context, userID int64) ([]types.Webinar, error)
	Get(ctx context.Context, id int64) (types.Webinar, error)
	Create(ctx context.Context, w types.Webinar) (types.Webinar, error)
	Register(ctx context.Context, webinarID, userID int64, check func(types.Webinar) error) error
	Unregister(ctx context.Context, webinarID, userID int64) error
}

// WebinarService schedules webinars and manages registrations. Meeting links
// are only shown to the host and to registered attendees.
type WebinarService struct {
	repo   WebinarRepository
	events EventPublisher
	now    func() time.Time
}

func NewWebinarService(repo WebinarRepository, events EventPublisher) *WebinarService {
	return &WebinarService{repo: repo, events: events, now: time.Now}
}

func (s *WebinarService) List(ctx context.Context, upcomingOnly bool, search string, offset, limit int) ([]types.Webinar, int, error) {
	items, total, err := s.repo.List(ctx, upcomingOnly, search, offset, clampLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].MeetingLink = ""
	}
	return items, total, nil
}

func (s *WebinarService) Get(ctx context.Context, id int64) (types.Webinar, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Webinar{}, err
	}
	w.MeetingLink = ""
	return w, nil
}

func (s *WebinarService) ListHosted(ctx context.Context, hostID int64) ([]types.Webinar, error) {
	return s.repo.ListByHost(ctx, hostID)
}

func (s *WebinarService) ListRegistrations(ctx context.Context, userID int64) ([]types.Webinar, error) {
	return s.repo.ListRegistrations(ctx, userID)
}

func (s *WebinarService) Create(ctx context.Context, hostID int64, w types.Webinar) (types.Webinar, error) {
	w.Title = strings.TrimSpace(w.Title)
	w.Description = strings.TrimSpace(w.Description)
	w.MeetingLink = strings.TrimSpace(w.MeetingLink)
	if w.Title == "" || w.ScheduledDate.IsZero() {
		return types.Webinar{}, invalid("title and scheduled_date are required")
	}
	if !w.ScheduledDate.After(s.now()) {
		return types.Webinar{}, invalid("scheduled_date must be in the future")
	}
	if w.DurationMinutes == 0 {
		w.DurationMinutes = defaultWebinarDuration
	}
	if w.MaxParticipants == 0 {
		w.MaxParticipants = defaultWebinarCapacity
	}
	if w.DurationMinutes < 0 || w.MaxParticipants < 0 {
		return types.Webinar{}, invalid("duration_minutes and max_participants must be positive")
	}
	w.HostID = hostID
	return s.repo.Create(ctx, w)
}

// Register signs userID up. The capacity check runs while the store holds the
// webinar row locked.
func (s *WebinarService) Register(ctx context.Context, userID, id int64) error {
	now := s.now()
	err := s.repo.Register(ctx, id, userID, func(w types.Webinar) error {
		if !w.RegistrationRequired {
			return invalid("this webinar does not require registration")
		}
		if !w.ScheduledDate.After(now) {
			return invalid("cannot register for a past webinar")
		}
		if w.RegisteredCount >= w.MaxParticipants {
			return invalid("webinar is full")
		}
		return nil
	})
	if err != nil {
		return err
	}

	publish(s.events, ctx, mq.Event{
		Type:      mq.EventWebinarRegistered,
		ActorID:   userID,
		SubjectID: id,
	})
	return nil
}

func (s *WebinarService) Unregister(ctx context.Context, userID, id int64) error {
	return s.repo.Unregister(ctx, id, userID)
}
