package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/alumni-connect/apiserver/types"
)

const connectionSelect = `
	SELECT c.id, c.requester_id, c.recipient_id, COALESCE(c.message, ''), c.status, c.created_at, c.updated_at,
		req.first_name, req.last_name, COALESCE(req.current_position, ''),
		rcp.first_name, rcp.last_name, COALESCE(rcp.current_position, '')
	FROM connections c
	JOIN users req ON req.id = c.requester_id
	JOIN users rcp ON rcp.id = c.recipient_id`

// ConnectionRepository handles peer connection requests.
type ConnectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// List returns connections involving viewer, each annotated from viewer's side.
func (r *ConnectionRepository) List(ctx context.Context, viewer int64, filter types.ConnectionFilter) ([]types.Connection, error) {
	status := filter.Status
	if status == "" {
		status = types.ConnectionAccepted
	}
	side := "(c.requester_id = $1 OR c.recipient_id = $1)"
	switch filter.Direction {
	case "sent":
		side = "c.requester_id = $1"
	case "received":
		side = "c.recipient_id = $1"
	}
	query := connectionSelect + ` WHERE ` + side + ` AND c.status = $2 ORDER BY c.created_at DESC`
	return r.query(ctx, viewer, query, viewer, status)
}

// FindBetween returns the connection row between a and b in either direction.
func (r *ConnectionRepository) FindBetween(ctx context.Context, a, b int64) (types.Connection, error) {
	query := connectionSelect + `
		WHERE (c.requester_id = $1 AND c.recipient_id = $2) OR (c.requester_id = $2 AND c.recipient_id = $1)
		LIMIT 1`
	items, err := r.query(ctx, a, query, a, b)
	if err != nil {
		return types.Connection{}, err
	}
	if len(items) == 0 {
		return types.Connection{}, ErrNotFound
	}
	return items[0], nil
}

func (r *ConnectionRepository) Get(ctx context.Context, id int64) (types.Connection, error) {
	items, err := r.query(ctx, 0, connectionSelect+` WHERE c.id = $1`, id)
	if err != nil {
		return types.Connection{}, err
	}
	if len(items) == 0 {
		return types.Connection{}, ErrNotFound
	}
	return items[0], nil
}

// Create inserts a pending request. The pair index makes a duplicate yield ErrConflict.
func (r *ConnectionRepository) Create(ctx context.Context, c types.Connection) (types.Connection, error) {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Status = types.ConnectionPending

	const query = `
		INSERT INTO connections (requester_id, recipient_id, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		c.RequesterID,
		c.RecipientID,
		c.Message,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID); err != nil {
		return types.Connection{}, mapWriteError(err)
	}
	return c, nil
}

// Reopen turns a declined row back into a pending request from requester.
func (r *ConnectionRepository) Reopen(ctx context.Context, id, requester, recipient int64, message string) (types.Connection, error) {
	const query = `
		UPDATE connections
		SET requester_id = $1, recipient_id = $2, message = $3, status = 'pending', updated_at = $4
		WHERE id = $5 AND status = 'declined'`
	result, err := r.db.ExecContext(ctx, query, requester, recipient, message, time.Now(), id)
	if err != nil {
		return types.Connection{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.Connection{}, err
	}
	return r.Get(ctx, id)
}

// Respond moves a pending request into status. It returns ErrNotFound when the
// row is missing or no longer pending.
func (r *ConnectionRepository) Respond(ctx context.Context, id int64, status types.ConnectionStatus) error {
	const query = `UPDATE connections SET status = $1, updated_at = $2 WHERE id = $3 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *ConnectionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// Stats counts accepted connections and pending requests on each side.
func (r *ConnectionRepository) Stats(ctx context.Context, userID int64) (types.ConnectionStats, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'accepted'),
			COUNT(*) FILTER (WHERE status = 'pending' AND recipient_id = $1),
			COUNT(*) FILTER (WHERE status = 'pending' AND requester_id = $1)
		FROM connections
		WHERE requester_id = $1 OR recipient_id = $1`
	var stats types.ConnectionStats
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalConnections,
		&stats.PendingRequests,
		&stats.SentRequests,
	); err != nil {
		return types.ConnectionStats{}, err
	}
	return stats, nil
}

// Suggestions lists active users with no accepted or pending connection to
// userID. Users sharing the viewer's major come first, then users with a
// different role.
func (r *ConnectionRepository) Suggestions(ctx context.Context, userID int64, limit int) ([]types.Suggestion, error) {
	const query = `
		SELECT u.id, u.first_name, u.last_name, COALESCE(u.current_position, ''),
			COALESCE(u.current_company, ''), COALESCE(u.major, ''), u.graduation_year, u.role
		FROM users u
		CROSS JOIN (SELECT major, role FROM users WHERE id = $1) me
		WHERE u.id <> $1 AND u.is_active = TRUE
			AND NOT EXISTS (
				SELECT 1 FROM connections c
				WHERE c.status IN ('accepted', 'pending')
					AND ((c.requester_id = $1 AND c.recipient_id = u.id)
						OR (c.recipient_id = $1 AND c.requester_id = u.id))
			)
		ORDER BY
			(COALESCE(u.major, '') <> '' AND u.major = me.major) DESC,
			(u.role <> me.role) DESC,
			random()
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Suggestion, 0)
	for rows.Next() {
		var (
			s    types.Suggestion
			year sql.NullInt64
		)
		if err := rows.Scan(
			&s.ID,
			&s.FirstName,
			&s.LastName,
			&s.CurrentPosition,
			&s.CurrentCompany,
			&s.Major,
			&year,
			&s.Role,
		); err != nil {
			return nil, err
		}
		if year.Valid {
			y := int(year.Int64)
			s.GraduationYear = &y
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ConnectionRepository) query(ctx context.Context, viewer int64, query string, args ...any) ([]types.Connection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Connection, 0)
	for rows.Next() {
		var (
			c         types.Connection
			requester types.Poster
			recipient types.Poster
		)
		if err := rows.Scan(
			&c.ID,
			&c.RequesterID,
			&c.RecipientID,
			&c.Message,
			&c.Status,
			&c.CreatedAt,
			&c.UpdatedAt,
			&requester.FirstName,
			&requester.LastName,
			&requester.CurrentPosition,
			&recipient.FirstName,
			&recipient.LastName,
			&recipient.CurrentPosition,
		); err != nil {
			return nil, err
		}
		requester.ID = c.RequesterID
		recipient.ID = c.RecipientID
		switch viewer {
		case c.RequesterID:
			c.User, c.Direction = &recipient, "sent"
		case c.RecipientID:
			c.User, c.Direction = &requester, "received"
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
