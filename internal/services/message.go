package services

import (
	"context"
	"errors"
	"strings"

	"github.com/alumni-connect/apiserver/internal/mq"
	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
)

type MessageRepository interface {
	List(ctx context.Context, userID int64, sent bool, offset, limit int) ([]types.Message, int, error)
	Conversation(ctx context.Context, a, b int64) ([]types.Message, error)
	Create(ctx context.Context, msg types.Message) (types.Message, error)
	Get(ctx context.Context, id int64) (types.Message, error)
	MarkRead(ctx context.Context, id int64) error
	MarkConversationRead(ctx context.Context, sender, recipient int64) error
	UnreadCount(ctx context.Context, userID int64) (int, error)
	Conversations(ctx context.Context, userID int64) ([]types.Conversation, error)
}

type MessageService struct {
	repo    MessageRepository
	members MemberLookup
	events  EventPublisher
}

func NewMessageService(repo MessageRepository, members MemberLookup, events EventPublisher) *MessageService {
	return &MessageService{repo: repo, members: members, events: events}
}

// List returns the caller's inbox, or their sent folder when sent is true.
func (s *MessageService) List(ctx context.Context, userID int64, sent bool, offset, limit int) ([]types.Message, int, error) {
	return s.repo.List(ctx, userID, sent, offset, clampLimit(limit))
}

func (s *MessageService) Send(ctx context.Context, senderID int64, msg types.Message) (types.Message, error) {
	msg.Content = strings.TrimSpace(msg.Content)
	msg.Subject = strings.TrimSpace(msg.Subject)
	if msg.RecipientID == 0 || msg.Content == "" {
		return types.Message{}, invalid("recipient_id and content are required")
	}
	if msg.RecipientID == senderID {
		return types.Message{}, invalid("cannot send a message to yourself")
	}
	if _, err := s.members.GetActiveByID(ctx, msg.RecipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Message{}, invalid("recipient not found")
		}
		return types.Message{}, err
	}

	msg.SenderID = senderID
	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		return types.Message{}, err
	}

	publish(s.events, ctx, mq.Event{
		Type:        mq.EventMessageSent,
		ActorID:     senderID,
		RecipientID: created.RecipientID,
		SubjectID:   created.ID,
	})
	return created, nil
}

// Get returns a message to either participant. Opening it as the recipient
// marks it read.
func (s *MessageService) Get(ctx context.Context, userID, id int64) (types.Message, error) {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Message{}, err
	}
	if msg.SenderID != userID && msg.RecipientID != userID {
		return types.Message{}, ErrNotPermitted
	}
	if msg.RecipientID == userID && !msg.IsRead {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			return types.Message{}, err
		}
		msg.IsRead = true
	}
	return msg, nil
}

func (s *MessageService) MarkRead(ctx context.Context, userID, id int64) error {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if msg.RecipientID != userID {
		return ErrNotPermitted
	}
	return s.repo.MarkRead(ctx, id)
}

// Conversation returns the thread with otherID and marks the incoming half read.
func (s *MessageService) Conversation(ctx context.Context, userID, otherID int64) ([]types.Message, error) {
	if otherID == userID {
		return nil, invalid("cannot open a conversation with yourself")
	}
	messages, err := s.repo.Conversation(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkConversationRead(ctx, otherID, userID); err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].RecipientID == userID {
			messages[i].IsRead = true
		}
	}
	return messages, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// Conversations lists the caller's threads with their latest message.
func (s *MessageService) Conversations(ctx context.Context, userID int64) ([]types.Conversation, error) {
	return s.repo.Conversations(ctx, userID)
}
