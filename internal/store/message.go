package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/alumni-connect/apiserver/types"
)

const messageSelect = `
	SELECT m.id, m.sender_id, m.recipient_id, COALESCE(m.subject, ''), m.content, m.is_read, m.sent_at,
		s.first_name, s.last_name, COALESCE(s.current_position, ''),
		r.first_name, r.last_name, COALESCE(r.current_position, '')
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.recipient_id`

// MessageRepository handles direct messages.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// List returns messages sent by userID when sent is true, otherwise the ones
// received by userID.
func (r *MessageRepository) List(ctx context.Context, userID int64, sent bool, offset, limit int) ([]types.Message, int, error) {
	column := "recipient_id"
	if sent {
		column = "sender_id"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM messages WHERE `+column+` = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := messageSelect + ` WHERE m.` + column + ` = $1 ORDER BY m.sent_at DESC LIMIT $2 OFFSET $3`
	items, err := r.query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Conversation returns every message exchanged between a and b, oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, a, b int64) ([]types.Message, error) {
	query := messageSelect + `
		WHERE (m.sender_id = $1 AND m.recipient_id = $2) OR (m.sender_id = $2 AND m.recipient_id = $1)
		ORDER BY m.sent_at ASC`
	return r.query(ctx, query, a, b)
}

func (r *MessageRepository) Create(ctx context.Context, msg types.Message) (types.Message, error) {
	msg.SentAt = time.Now()
	msg.IsRead = false

	const query = `
		INSERT INTO messages (sender_id, recipient_id, subject, content, is_read, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		msg.SenderID,
		msg.RecipientID,
		msg.Subject,
		msg.Content,
		msg.IsRead,
		msg.SentAt,
	).Scan(&msg.ID); err != nil {
		return types.Message{}, err
	}
	return r.Get(ctx, msg.ID)
}

func (r *MessageRepository) Get(ctx context.Context, id int64) (types.Message, error) {
	items, err := r.query(ctx, messageSelect+` WHERE m.id = $1`, id)
	if err != nil {
		return types.Message{}, err
	}
	if len(items) == 0 {
		return types.Message{}, ErrNotFound
	}
	return items[0], nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// MarkConversationRead marks everything from sender to recipient as read.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, sender, recipient int64) error {
	const query = `
		UPDATE messages SET is_read = TRUE
		WHERE sender_id = $1 AND recipient_id = $2 AND is_read = FALSE`
	_, err := r.db.ExecContext(ctx, query, sender, recipient)
	return err
}

func (r *MessageRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	const query = `SELECT COUNT(1) FROM messages WHERE recipient_id = $1 AND is_read = FALSE`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Conversations returns one row per user that userID has exchanged messages
// with, newest thread first.
func (r *MessageRepository) Conversations(ctx context.Context, userID int64) ([]types.Conversation, error) {
	const query = `
		SELECT t.other_id, u.first_name, u.last_name, COALESCE(u.current_position, ''),
			t.content, t.sent_at,
			(SELECT COUNT(1) FROM messages un
				WHERE un.sender_id = t.other_id AND un.recipient_id = $1 AND un.is_read = FALSE)
		FROM (
			SELECT DISTINCT ON (CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END)
				CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS other_id,
				m.content, m.sent_at
			FROM messages m
			WHERE m.sender_id = $1 OR m.recipient_id = $1
			ORDER BY CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END,
				m.sent_at DESC, m.id DESC
		) t
		JOIN users u ON u.id = t.other_id
		ORDER BY t.sent_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Conversation, 0)
	for rows.Next() {
		var c types.Conversation
		if err := rows.Scan(
			&c.User.ID,
			&c.User.FirstName,
			&c.User.LastName,
			&c.User.CurrentPosition,
			&c.LastMessage,
			&c.LastMessageAt,
			&c.UnreadCount,
		); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MessageRepository) query(ctx context.Context, query string, args ...any) ([]types.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Message, 0)
	for rows.Next() {
		var msg types.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.Subject,
			&msg.Content,
			&msg.IsRead,
			&msg.SentAt,
			&msg.Sender.FirstName,
			&msg.Sender.LastName,
			&msg.Sender.CurrentPosition,
			&msg.Recipient.FirstName,
			&msg.Recipient.LastName,
			&msg.Recipient.CurrentPosition,
		); err != nil {
			return nil, err
		}
		msg.Sender.ID = msg.SenderID
		msg.Recipient.ID = msg.RecipientID
		items = append(items, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
