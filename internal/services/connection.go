package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
)

type ConnectionRepository interface {
	List(ctx context.Context, viewer int64, filter types.ConnectionFilter) ([]types.Connection, error)
	FindBetween(ctx context.Context, a, b int64) (types.Connection, error)
	Get(ctx context.Context, id int64) (types.Connection, error)
	Create(ctx context.Context, c types.Connection) (types.Connection, error)
	Reopen(ctx context.Context, id, requester, recipient int64, message string) (types.Connection, error)
	Respond(ctx context.Context, id int64, status types.ConnectionStatus) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, userID int64) (types.ConnectionStats, error)
	Suggestions(ctx context.Context, userID int64, limit int) ([]types.Suggestion, error)
}

const (
	defaultSuggestions = 10
	maxSuggestions     = 50
)

type ConnectionService struct {
	repo    ConnectionRepository
	members MemberLookup
	events  EventPublisher
}

func NewConnectionService(repo ConnectionRepository, members MemberLookup, events EventPublisher) *ConnectionService {
	return &ConnectionService{repo: repo, members: members, events: events}
}

// List defaults to accepted connections on either side.
func (s *ConnectionService) List(ctx context.Context, userID int64, filter types.ConnectionFilter) ([]types.Connection, error) {
	switch filter.Status {
	case "", types.ConnectionPending, types.ConnectionAccepted, types.ConnectionDeclined:
	default:
		return nil, invalid("invalid status")
	}
	switch filter.Direction {
	case "", "sent", "received":
	default:
		return nil, invalid("type must be sent or received")
	}
	return s.repo.List(ctx, userID, filter)
}

// Pending lists requests waiting on the caller's answer.
func (s *ConnectionService) Pending(ctx context.Context, userID int64) ([]types.Connection, error) {
	return s.repo.List(ctx, userID, types.ConnectionFilter{Status: types.ConnectionPending, Direction: "received"})
}

// Request asks recipientID to connect. A previously declined pair is reopened
// as a fresh request from the caller.
func (s *ConnectionService) Request(ctx context.Context, requesterID, recipientID int64, message string) (types.Connection, error) {
	if recipientID == 0 {
		return types.Connection{}, invalid("recipient_id is required")
	}
	if recipientID == requesterID {
		return types.Connection{}, invalid("cannot connect with yourself")
	}
	if _, err := s.members.GetActiveByID(ctx, recipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Connection{}, invalid("user not found")
		}
		return types.Connection{}, err
	}
	message = strings.TrimSpace(message)

	var (
		conn types.Connection
		err  error
	)
	existing, findErr := s.repo.FindBetween(ctx, requesterID, recipientID)
	switch {
	case findErr == nil && existing.Status == types.ConnectionAccepted:
		return types.Connection{}, fmt.Errorf("already connected: %w", store.ErrConflict)
	case findErr == nil && existing.Status == types.ConnectionPending:
		return types.Connection{}, fmt.Errorf("connection request already pending: %w", store.ErrConflict)
	case findErr == nil:
		conn, err = s.repo.Reopen(ctx, existing.ID, requesterID, recipientID, message)
	case errors.Is(findErr, store.ErrNotFound):
		conn, err = s.repo.Create(ctx, types.Connection{
			RequesterID: requesterID,
			RecipientID: recipientID,
			Message:     message,
		})
	default:
		return types.Connection{}, findErr
	}
	if err != nil {
		return types.Connection{}, err
	}

	publish(s.events, ctx, mq.Event{
		Type:        mq.EventConnectionRequested,
		ActorID:     requesterID,
		RecipientID: recipientID,
		SubjectID:   conn.ID,
	})
	return conn, nil
}

// Respond accepts or declines a pending request addressed to the caller.
func (s *ConnectionService) Respond(ctx context.Context, userID, id int64, status types.ConnectionStatus) (types.Connection, error) {
	if status != types.ConnectionAccepted && status != types.ConnectionDeclined {
		return types.Connection{}, invalid("status must be accepted or declined")
	}
	conn, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Connection{}, err
	}
	if conn.RecipientID != userID {
		return types.Connection{}, ErrNotPermitted
	}
	if conn.Status != types.ConnectionPending {
		return types.Connection{}, invalid("connection request is no longer pending")
	}
	if err := s.repo.Respond(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Connection{}, invalid("connection request is no longer pending")
		}
		return types.Connection{}, err
	}
	conn.Status = status

	if status == types.ConnectionAccepted {
		publish(s.events, ctx, mq.Event{
			Type:        mq.EventConnectionAccepted,
			ActorID:     userID,
			RecipientID: conn.RequesterID,
			SubjectID:   conn.ID,
		})
	}
	return conn, nil
}

// Remove deletes a connection or request. Either side may do it.
func (s *ConnectionService) Remove(ctx context.Context, userID, id int64) error {
	conn, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !conn.Involves(userID) {
		return ErrNotPermitted
	}
	return s.repo.Delete(ctx, id)
}

func (s *ConnectionService) Stats(ctx context.Context, userID int64) (types.ConnectionStats, error) {
	return s.repo.Stats(ctx, userID)
}

// Suggestions proposes people to connect with. limit defaults to 10 and is
// capped at 50.
func (s *ConnectionService) Suggestions(ctx context.Context, userID int64, limit int) ([]types.Suggestion, error) {
	if limit < 0 {
		return nil, invalid("invalid limit")
	}
	if limit == 0 {
		limit = defaultSuggestions
	}
	if limit > maxSuggestions {
		limit = maxSuggestions
	}
	return s.repo.Suggestions(ctx, userID, limit)
}
