package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/types"
)

const webinarSelect = `
	SELECT w.id, w.host_id, w.title, COALESCE(w.description, ''), w.scheduled_date,
		w.duration_minutes, w.max_participants, COALESCE(w.meeting_link, ''),
		w.registration_required, w.is_active, w.created_at,
		u.first_name, u.last_name, COALESCE(u.current_position, ''),
		(SELECT COUNT(*) FROM webinar_registrations wr WHERE wr.webinar_id = w.id)
	FROM webinars w
	JOIN users u ON u.id = w.host_id`

// WebinarRepository handles webinars and registrations.
type WebinarRepository struct {
	db *sql.DB
}

func NewWebinarRepository(db *sql.DB) *WebinarRepository {
	return &WebinarRepository{db: db}
}

func (r *WebinarRepository) List(ctx context.Context, upcomingOnly bool, search string, offset, limit int) ([]types.Webinar, int, error) {
	where := []string{"w.is_active = TRUE"}
	args := []any{}
	if upcomingOnly {
		where = append(where, "w.scheduled_date > NOW()")
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(w.title ILIKE $%d OR w.description ILIKE $%d)", n, n))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM webinars w`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := webinarSelect + clause +
		fmt.Sprintf(" ORDER BY w.scheduled_date ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *WebinarRepository) ListByHost(ctx context.Context, hostID int64) ([]types.Webinar, error) {
	return r.query(ctx, webinarSelect+` WHERE w.host_id = $1 ORDER BY w.scheduled_date DESC`, hostID)
}

// ListRegistrations returns the active webinars userID has registered for.
func (r *WebinarRepository) ListRegistrations(ctx context.Context, userID int64) ([]types.Webinar, error) {
	query := webinarSelect + `
		JOIN webinar_registrations reg ON reg.webinar_id = w.id
		WHERE reg.user_id = $1 AND w.is_active = TRUE
		ORDER BY w.scheduled_date ASC`
	return r.query(ctx, query, userID)
}

func (r *WebinarRepository) Get(ctx context.Context, id int64) (types.Webinar, error) {
	items, err := r.query(ctx, webinarSelect+` WHERE w.id = $1`, id)
	if err != nil {
		return types.Webinar{}, err
	}
	if len(items) == 0 {
		return types.Webinar{}, ErrNotFound
	}
	return items[0], nil
}

func (r *WebinarRepository) Create(ctx context.Context, w types.Webinar) (types.Webinar, error) {
	w.CreatedAt = time.Now()
	w.IsActive = true

	const query = `
		INSERT INTO webinars (
			host_id, title, description, scheduled_date, duration_minutes, max_participants,
			meeting_link, registration_required, is_active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		w.HostID,
		w.Title,
		w.Description,
		w.ScheduledDate,
		w.DurationMinutes,
		w.MaxParticipants,
		w.MeetingLink,
		w.RegistrationRequired,
		w.IsActive,
		w.CreatedAt,
	).Scan(&w.ID); err != nil {
		return types.Webinar{}, mapWriteError(err)
	}
	return r.Get(ctx, w.ID)
}

// Register adds userID to the webinar. The webinar row is locked while check
// runs so that capacity decisions are not raced by concurrent registrations.
func (r *WebinarRepository) Register(ctx context.Context, webinarID, userID int64, check func(types.Webinar) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var w types.Webinar
	const lock = `
		SELECT id, scheduled_date, max_participants, registration_required, is_active
		FROM webinars
		WHERE id = $1
		FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lock, webinarID).Scan(
		&w.ID,
		&w.ScheduledDate,
		&w.MaxParticipants,
		&w.RegistrationRequired,
		&w.IsActive,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !w.IsActive {
		return ErrNotFound
	}

	const count = `SELECT COUNT(*) FROM webinar_registrations WHERE webinar_id = $1`
	if err := tx.QueryRowContext(ctx, count, webinarID).Scan(&w.RegisteredCount); err != nil {
		return err
	}
	if check != nil {
		if err := check(w); err != nil {
			return err
		}
	}

	const insert = `INSERT INTO webinar_registrations (webinar_id, user_id, registered_at) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insert, webinarID, userID, time.Now()); err != nil {
		return mapWriteError(err)
	}
	return tx.Commit()
}

func (r *WebinarRepository) Unregister(ctx context.Context, webinarID, userID int64) error {
	const query = `DELETE FROM webinar_registrations WHERE webinar_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, webinarID, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *WebinarRepository) query(ctx context.Context, query string, args ...any) ([]types.Webinar, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Webinar, 0)
	for rows.Next() {
		var w types.Webinar
		if err := rows.Scan(
			&w.ID,
			&w.HostID,
			&w.Title,
			&w.Description,
			&w.ScheduledDate,
			&w.DurationMinutes,
			&w.MaxParticipants,
			&w.MeetingLink,
			&w.RegistrationRequired,
			&w.IsActive,
			&w.CreatedAt,
			&w.Host.FirstName,
			&w.Host.LastName,
			&w.Host.CurrentPosition,
			&w.RegisteredCount,
		); err != nil {
			return nil, err
		}
		w.Host.ID = w.HostID
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
