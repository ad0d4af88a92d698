package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/types"
)

const programSelect = `
	SELECT mp.id, mp.mentor_id, mp.title, mp.description, mp.expertise_areas,
		mp.max_mentees, mp.duration_weeks, mp.is_active, mp.created_at,
		u.first_name, u.last_name, COALESCE(u.current_position, ''),
		(SELECT COUNT(*) FROM mentorship_sessions ms WHERE ms.program_id = mp.id)
	FROM mentorship_programs mp
	JOIN users u ON u.id = mp.mentor_id`

const sessionSelect = `
	SELECT ms.id, ms.program_id, ms.mentor_id, ms.mentee_id, ms.title,
		COALESCE(ms.description, ''), ms.session_type, ms.scheduled_date, ms.duration_minutes,
		COALESCE(ms.meeting_link, ''), COALESCE(ms.notes, ''), ms.status,
		ms.feedback_rating, COALESCE(ms.feedback_comment, ''), ms.created_at, ms.updated_at,
		mentor.first_name, mentor.last_name, COALESCE(mentor.current_position, ''),
		mentee.first_name, mentee.last_name, COALESCE(mentee.current_position, '')
	FROM mentorship_sessions ms
	JOIN users mentor ON mentor.id = ms.mentor_id
	JOIN users mentee ON mentee.id = ms.mentee_id`

// MentorshipRepository handles programs and session requests.
type MentorshipRepository struct {
	db *sql.DB
}

func NewMentorshipRepository(db *sql.DB) *MentorshipRepository {
	return &MentorshipRepository{db: db}
}

func (r *MentorshipRepository) ListPrograms(ctx context.Context, search string, offset, limit int) ([]types.MentorshipProgram, int, error) {
	where := []string{"mp.is_active = TRUE"}
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(mp.title ILIKE $%d OR mp.description ILIKE $%d OR mp.expertise_areas::text ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d)",
			n, n, n, n, n,
		))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(1) FROM mentorship_programs mp JOIN users u ON u.id = mp.mentor_id` + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := programSelect + clause +
		fmt.Sprintf(" ORDER BY mp.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	items, err := r.queryPrograms(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MentorshipRepository) GetProgram(ctx context.Context, id int64) (types.MentorshipProgram, error) {
	items, err := r.queryPrograms(ctx, programSelect+` WHERE mp.id = $1`, id)
	if err != nil {
		return types.MentorshipProgram{}, err
	}
	if len(items) == 0 {
		return types.MentorshipProgram{}, ErrNotFound
	}
	return items[0], nil
}

func (r *MentorshipRepository) CreateProgram(ctx context.Context, p types.MentorshipProgram) (types.MentorshipProgram, error) {
	p.CreatedAt = time.Now()
	p.IsActive = true

	areas, err := marshalStrings(p.ExpertiseAreas)
	if err != nil {
		return types.MentorshipProgram{}, err
	}

	const query = `
		INSERT INTO mentorship_programs (
			mentor_id, title, description, expertise_areas, max_mentees, duration_weeks, is_active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		p.MentorID,
		p.Title,
		p.Description,
		areas,
		p.MaxMentees,
		p.DurationWeeks,
		p.IsActive,
		p.CreatedAt,
	).Scan(&p.ID); err != nil {
		return types.MentorshipProgram{}, mapWriteError(err)
	}
	return p, nil
}

// ListMentors returns active alumni and mentors ordered by how active they are.
func (r *MentorshipRepository) ListMentors(ctx context.Context, search string) ([]types.MentorSummary, error) {
	where := []string{"u.role IN ('alumni', 'mentor')", "u.is_active = TRUE"}
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(u.first_name ILIKE $%d OR u.last_name ILIKE $%d OR u.current_company ILIKE $%d OR u.skills::text ILIKE $%d)",
			n, n, n, n,
		))
	}

	query := `
		SELECT u.id, u.first_name, u.last_name, COALESCE(u.current_position, ''),
			COALESCE(u.current_company, ''), COALESCE(u.location, ''), COALESCE(u.bio, ''),
			COALESCE(u.skills, '[]'::jsonb),
			COUNT(DISTINCT mp.id), COUNT(DISTINCT ms.id)
		FROM users u
		LEFT JOIN mentorship_programs mp ON mp.mentor_id = u.id AND mp.is_active = TRUE
		LEFT JOIN mentorship_sessions ms ON ms.mentor_id = u.id
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY u.id
		ORDER BY COUNT(DISTINCT mp.id) DESC, COUNT(DISTINCT ms.id) DESC, u.first_name ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mentors := make([]types.MentorSummary, 0)
	for rows.Next() {
		var (
			m         types.MentorSummary
			rawSkills []byte
		)
		if err := rows.Scan(
			&m.ID,
			&m.FirstName,
			&m.LastName,
			&m.CurrentPosition,
			&m.CurrentCompany,
			&m.Location,
			&m.Bio,
			&rawSkills,
			&m.ProgramCount,
			&m.SessionCount,
		); err != nil {
			return nil, err
		}
		if m.Skills, err = unmarshalStrings(rawSkills); err != nil {
			return nil, err
		}
		mentors = append(mentors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mentors, nil
}

func (r *MentorshipRepository) CreateSession(ctx context.Context, s types.MentorshipSession) (types.MentorshipSession, error) {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	s.Status = types.SessionRequested

	const query = `
		INSERT INTO mentorship_sessions (
			program_id, mentor_id, mentee_id, title, description, session_type,
			scheduled_date, duration_minutes, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		nullableInt64(s.ProgramID),
		s.MentorID,
		s.MenteeID,
		s.Title,
		s.Description,
		s.SessionType,
		nullableTime(s.ScheduledDate),
		s.DurationMinutes,
		s.Status,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID); err != nil {
		return types.MentorshipSession{}, mapWriteError(err)
	}
	return r.GetSession(ctx, s.ID)
}

func (r *MentorshipRepository) GetSession(ctx context.Context, id int64) (types.MentorshipSession, error) {
	items, err := r.querySessions(ctx, sessionSelect+` WHERE ms.id = $1`, id)
	if err != nil {
		return types.MentorshipSession{}, err
	}
	if len(items) == 0 {
		return types.MentorshipSession{}, ErrNotFound
	}
	return items[0], nil
}

// ListSessions returns sessions where userID is the mentee (asMentee) or the mentor.
func (r *MentorshipRepository) ListSessions(ctx context.Context, userID int64, asMentee bool, status types.SessionStatus) ([]types.MentorshipSession, error) {
	column := "ms.mentor_id"
	if asMentee {
		column = "ms.mentee_id"
	}
	query := sessionSelect + ` WHERE ` + column + ` = $1`
	args := []any{userID}
	if status != "" {
		args = append(args, status)
		query += ` AND ms.status = $2`
	}
	query += ` ORDER BY ms.scheduled_date DESC NULLS LAST, ms.created_at DESC`
	return r.querySessions(ctx, query, args...)
}

func (r *MentorshipRepository) UpdateSession(ctx context.Context, id int64, update types.SessionUpdate) (types.MentorshipSession, error) {
	var status any
	if update.Status != nil {
		status = string(*update.Status)
	}
	const query = `
		UPDATE mentorship_sessions
		SET status = COALESCE($1, status),
			scheduled_date = COALESCE($2, scheduled_date),
			duration_minutes = COALESCE($3, duration_minutes),
			meeting_link = COALESCE($4, meeting_link),
			notes = COALESCE($5, notes),
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		status,
		nullableTime(update.ScheduledDate),
		nullableInt(update.DurationMinutes),
		nullableString(update.MeetingLink),
		nullableString(update.Notes),
		time.Now(),
		id,
	)
	if err != nil {
		return types.MentorshipSession{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.MentorshipSession{}, err
	}
	return r.GetSession(ctx, id)
}

func (r *MentorshipRepository) SetFeedback(ctx context.Context, id int64, rating *int, comment string) error {
	const query = `
		UPDATE mentorship_sessions
		SET feedback_rating = $1, feedback_comment = $2, updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, nullableInt(rating), comment, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *MentorshipRepository) queryPrograms(ctx context.Context, query string, args ...any) ([]types.MentorshipProgram, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.MentorshipProgram, 0)
	for rows.Next() {
		var (
			p        types.MentorshipProgram
			rawAreas []byte
		)
		if err := rows.Scan(
			&p.ID,
			&p.MentorID,
			&p.Title,
			&p.Description,
			&rawAreas,
			&p.MaxMentees,
			&p.DurationWeeks,
			&p.IsActive,
			&p.CreatedAt,
			&p.Mentor.FirstName,
			&p.Mentor.LastName,
			&p.Mentor.CurrentPosition,
			&p.CurrentMentees,
		); err != nil {
			return nil, err
		}
		if p.ExpertiseAreas, err = unmarshalStrings(rawAreas); err != nil {
			return nil, err
		}
		p.Mentor.ID = p.MentorID
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MentorshipRepository) querySessions(ctx context.Context, query string, args ...any) ([]types.MentorshipSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.MentorshipSession, 0)
	for rows.Next() {
		var (
			s         types.MentorshipSession
			programID sql.NullInt64
			scheduled sql.NullTime
			rating    sql.NullInt64
		)
		if err := rows.Scan(
			&s.ID,
			&programID,
			&s.MentorID,
			&s.MenteeID,
			&s.Title,
			&s.Description,
			&s.SessionType,
			&scheduled,
			&s.DurationMinutes,
			&s.MeetingLink,
			&s.Notes,
			&s.Status,
			&rating,
			&s.FeedbackComment,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.Mentor.FirstName,
			&s.Mentor.LastName,
			&s.Mentor.CurrentPosition,
			&s.Mentee.FirstName,
			&s.Mentee.LastName,
			&s.Mentee.CurrentPosition,
		); err != nil {
			return nil, err
		}
		s.ProgramID = int64Ptr(programID)
		s.ScheduledDate = timePtr(scheduled)
		if rating.Valid {
			v := int(rating.Int64)
			s.FeedbackRating = &v
		}
		s.Mentor.ID = s.MentorID
		s.Mentee.ID = s.MenteeID
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
