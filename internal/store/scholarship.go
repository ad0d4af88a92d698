package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/types"
)

const scholarshipSelect = `
	SELECT s.id, s.title, s.organization, s.amount, s.description, s.eligibility_criteria,
		s.application_deadline, COALESCE(s.application_url, ''), s.posted_by, s.is_active,
		s.created_at, s.updated_at,
		u.first_name, u.last_name, COALESCE(u.current_position, '')
	FROM scholarships s
	JOIN users u ON u.id = s.posted_by`

// ScholarshipRepository handles persistence for scholarship postings.
type ScholarshipRepository struct {
	db *sql.DB
}

func NewScholarshipRepository(db *sql.DB) *ScholarshipRepository {
	return &ScholarshipRepository{db: db}
}

// List returns active scholarships whose deadline has not passed.
func (r *ScholarshipRepository) List(ctx context.Context, filter types.PostingFilter) ([]types.Scholarship, int, error) {
	where := []string{"s.is_active = TRUE", "s.application_deadline >= CURRENT_DATE"}
	args := []any{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(s.title ILIKE $%d OR s.organization ILIKE $%d OR s.description ILIKE $%d)", n, n, n))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM scholarships s`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := scholarshipSelect + clause +
		fmt.Sprintf(" ORDER BY s.application_deadline ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	items, err := r.query(ctx, false, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListEligible returns open scholarships for a student, flagging the ones
// they have already applied to.
func (r *ScholarshipRepository) ListEligible(ctx context.Context, studentID int64) ([]types.Scholarship, error) {
	const query = `
	SELECT s.id, s.title, s.organization, s.amount, s.description, s.eligibility_criteria,
		s.application_deadline, COALESCE(s.application_url, ''), s.posted_by, s.is_active,
		s.created_at, s.updated_at,
		u.first_name, u.last_name, COALESCE(u.current_position, ''),
		EXISTS (
			SELECT 1 FROM applications a WHERE a.scholarship_id = s.id AND a.user_id = $1
		)
	FROM scholarships s
	JOIN users u ON u.id = s.posted_by
	WHERE s.is_active = TRUE AND s.application_deadline >= CURRENT_DATE
	ORDER BY s.application_deadline ASC`
	return r.query(ctx, true, query, studentID)
}

func (r *ScholarshipRepository) ListByPoster(ctx context.Context, userID int64) ([]types.Scholarship, error) {
	return r.query(ctx, false, scholarshipSelect+` WHERE s.posted_by = $1 ORDER BY s.created_at DESC`, userID)
}

func (r *ScholarshipRepository) Get(ctx context.Context, id int64) (types.Scholarship, error) {
	items, err := r.query(ctx, false, scholarshipSelect+` WHERE s.id = $1`, id)
	if err != nil {
		return types.Scholarship{}, err
	}
	if len(items) == 0 {
		return types.Scholarship{}, ErrNotFound
	}
	return items[0], nil
}

func (r *ScholarshipRepository) Create(ctx context.Context, s types.Scholarship) (types.Scholarship, error) {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	s.IsActive = true

	const query = `
		INSERT INTO scholarships (
			title, organization, amount, description, eligibility_criteria,
			application_deadline, application_url, posted_by, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		s.Title,
		s.Organization,
		nullableFloat(s.Amount),
		s.Description,
		s.EligibilityCriteria,
		s.ApplicationDeadline,
		s.ApplicationURL,
		s.PostedBy,
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID); err != nil {
		return types.Scholarship{}, mapWriteError(err)
	}
	return s, nil
}

func (r *ScholarshipRepository) Update(ctx context.Context, id int64, update types.ScholarshipUpdate) (types.Scholarship, error) {
	const query = `
		UPDATE scholarships
		SET title = COALESCE($1, title),
			organization = COALESCE($2, organization),
			amount = COALESCE($3, amount),
			description = COALESCE($4, description),
			eligibility_criteria = COALESCE($5, eligibility_criteria),
			application_deadline = COALESCE($6, application_deadline),
			application_url = COALESCE($7, application_url),
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		nullableString(update.Title),
		nullableString(update.Organization),
		nullableFloat(update.Amount),
		nullableString(update.Description),
		nullableString(update.EligibilityCriteria),
		nullableTime(update.ApplicationDeadline),
		nullableString(update.ApplicationURL),
		time.Now(),
		id,
	)
	if err != nil {
		return types.Scholarship{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.Scholarship{}, err
	}
	return r.Get(ctx, id)
}

func (r *ScholarshipRepository) query(ctx context.Context, withApplied bool, query string, args ...any) ([]types.Scholarship, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Scholarship, 0)
	for rows.Next() {
		var (
			s       types.Scholarship
			amount  sql.NullFloat64
			applied bool
		)
		dest := []any{
			&s.ID,
			&s.Title,
			&s.Organization,
			&amount,
			&s.Description,
			&s.EligibilityCriteria,
			&s.ApplicationDeadline,
			&s.ApplicationURL,
			&s.PostedBy,
			&s.IsActive,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.Poster.FirstName,
			&s.Poster.LastName,
			&s.Poster.CurrentPosition,
		}
		if withApplied {
			dest = append(dest, &applied)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		s.Amount = floatPtr(amount)
		s.Poster.ID = s.PostedBy
		if withApplied {
			s.AlreadyApplied = &applied
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
