package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/types"
)

const opportunitySelect = `
	SELECT o.id, o.title, o.company, o.type, o.description,
		COALESCE(o.requirements, ''), COALESCE(o.location, ''), COALESCE(o.salary_range, ''),
		o.application_deadline, o.posted_by, o.is_active, o.created_at, o.updated_at,
		u.first_name, u.last_name, COALESCE(u.current_position, '')
	FROM opportunities o
	JOIN users u ON u.id = o.posted_by`

// OpportunityRepository handles persistence for job and internship postings.
type OpportunityRepository struct {
	db *sql.DB
}

func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// List returns active opportunities, newest first.
func (r *OpportunityRepository) List(ctx context.Context, filter types.PostingFilter) ([]types.Opportunity, int, error) {
	where := []string{"o.is_active = TRUE"}
	args := []any{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("o.type = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(o.title ILIKE $%d OR o.company ILIKE $%d OR o.description ILIKE $%d)", n, n, n))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(1) FROM opportunities o` + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := opportunitySelect + clause +
		fmt.Sprintf(" ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByPoster returns every opportunity posted by userID, including inactive ones.
func (r *OpportunityRepository) ListByPoster(ctx context.Context, userID int64) ([]types.Opportunity, error) {
	return r.query(ctx, opportunitySelect+` WHERE o.posted_by = $1 ORDER BY o.created_at DESC`, userID)
}

func (r *OpportunityRepository) Get(ctx context.Context, id int64) (types.Opportunity, error) {
	items, err := r.query(ctx, opportunitySelect+` WHERE o.id = $1`, id)
	if err != nil {
		return types.Opportunity{}, err
	}
	if len(items) == 0 {
		return types.Opportunity{}, ErrNotFound
	}
	return items[0], nil
}

func (r *OpportunityRepository) Create(ctx context.Context, opp types.Opportunity) (types.Opportunity, error) {
	now := time.Now()
	opp.CreatedAt = now
	opp.UpdatedAt = now
	opp.IsActive = true

	const query = `
		INSERT INTO opportunities (
			title, company, type, description, requirements, location, salary_range,
			application_deadline, posted_by, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		opp.Title,
		opp.Company,
		opp.Type,
		opp.Description,
		opp.Requirements,
		opp.Location,
		opp.SalaryRange,
		nullableTime(opp.ApplicationDeadline),
		opp.PostedBy,
		opp.IsActive,
		opp.CreatedAt,
		opp.UpdatedAt,
	).Scan(&opp.ID); err != nil {
		return types.Opportunity{}, mapWriteError(err)
	}
	return opp, nil
}

// Update applies the non-nil fields of update.
func (r *OpportunityRepository) Update(ctx context.Context, id int64, update types.OpportunityUpdate) (types.Opportunity, error) {
	var oppType any
	if update.Type != nil {
		oppType = string(*update.Type)
	}
	const query = `
		UPDATE opportunities
		SET title = COALESCE($1, title),
			company = COALESCE($2, company),
			type = COALESCE($3, type),
			description = COALESCE($4, description),
			requirements = COALESCE($5, requirements),
			location = COALESCE($6, location),
			salary_range = COALESCE($7, salary_range),
			application_deadline = COALESCE($8, application_deadline),
			updated_at = $9
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		nullableString(update.Title),
		nullableString(update.Company),
		oppType,
		nullableString(update.Description),
		nullableString(update.Requirements),
		nullableString(update.Location),
		nullableString(update.SalaryRange),
		nullableTime(update.ApplicationDeadline),
		time.Now(),
		id,
	)
	if err != nil {
		return types.Opportunity{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.Opportunity{}, err
	}
	return r.Get(ctx, id)
}

// Deactivate hides an opportunity from listings. The row is kept so existing
// applications still resolve.
func (r *OpportunityRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE opportunities SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *OpportunityRepository) query(ctx context.Context, query string, args ...any) ([]types.Opportunity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Opportunity, 0)
	for rows.Next() {
		var (
			opp      types.Opportunity
			deadline sql.NullTime
		)
		if err := rows.Scan(
			&opp.ID,
			&opp.Title,
			&opp.Company,
			&opp.Type,
			&opp.Description,
			&opp.Requirements,
			&opp.Location,
			&opp.SalaryRange,
			&deadline,
			&opp.PostedBy,
			&opp.IsActive,
			&opp.CreatedAt,
			&opp.UpdatedAt,
			&opp.Poster.FirstName,
			&opp.Poster.LastName,
			&opp.Poster.CurrentPosition,
		); err != nil {
			return nil, err
		}
		opp.ApplicationDeadline = timePtr(deadline)
		opp.Poster.ID = opp.PostedBy
		items = append(items, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
