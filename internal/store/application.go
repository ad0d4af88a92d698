package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/types"
)

const applicationSelect = `
	SELECT a.id, a.user_id, a.application_type, a.opportunity_id, a.scholarship_id,
		COALESCE(a.cover_letter, ''), COALESCE(a.resume_url, ''), a.status,
		a.created_at, a.updated_at,
		COALESCE(o.title, s.title, ''), COALESCE(o.company, s.organization, ''),
		COALESCE(o.posted_by, s.posted_by, 0),
		u.first_name, u.last_name, COALESCE(u.current_position, '')
	FROM applications a
	JOIN users u ON u.id = a.user_id
	LEFT JOIN opportunities o ON o.id = a.opportunity_id
	LEFT JOIN scholarships s ON s.id = a.scholarship_id`

// ApplicationRepository handles persistence for student applications.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts an application. Applying twice to the same posting yields
// ErrConflict through the unique indexes on the table.
func (r *ApplicationRepository) Create(ctx context.Context, app types.Application) (types.Application, error) {
	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = types.ApplicationSubmitted
	}

	const query = `
		INSERT INTO applications (
			user_id, application_type, opportunity_id, scholarship_id,
			cover_letter, resume_url, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		app.UserID,
		app.Type,
		nullableInt64(app.OpportunityID),
		nullableInt64(app.ScholarshipID),
		app.CoverLetter,
		app.ResumeURL,
		app.Status,
		app.CreatedAt,
		app.UpdatedAt,
	).Scan(&app.ID); err != nil {
		return types.Application{}, mapWriteError(err)
	}
	return app, nil
}

func (r *ApplicationRepository) Get(ctx context.Context, id int64) (types.Application, error) {
	items, err := r.query(ctx, applicationSelect+` WHERE a.id = $1`, id)
	if err != nil {
		return types.Application{}, err
	}
	if len(items) == 0 {
		return types.Application{}, ErrNotFound
	}
	return items[0], nil
}

// ListByApplicant returns applications submitted by userID.
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, userID int64, filter types.ApplicationFilter) ([]types.Application, error) {
	where, args := applicationFilterClause([]string{"a.user_id = $1"}, []any{userID}, filter)
	items, err := r.query(ctx, applicationSelect+where+` ORDER BY a.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Applicant = nil
	}
	return items, nil
}

// ListReceived returns applications to postings owned by posterID.
func (r *ApplicationRepository) ListReceived(ctx context.Context, posterID int64, filter types.ApplicationFilter) ([]types.Application, error) {
	owner := "(o.posted_by = $1 OR s.posted_by = $1)"
	switch filter.Type {
	case types.ApplicationOpportunity:
		owner = "o.posted_by = $1"
	case types.ApplicationScholarship:
		owner = "s.posted_by = $1"
	}
	where, args := applicationFilterClause([]string{owner}, []any{posterID}, filter)
	return r.query(ctx, applicationSelect+where+` ORDER BY a.created_at DESC`, args...)
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, status types.ApplicationStatus) error {
	const query = `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// StatsForApplicant counts the applications userID has submitted.
func (r *ApplicationRepository) StatsForApplicant(ctx context.Context, userID int64) (types.ApplicationStats, error) {
	return r.stats(ctx, "a.user_id = $1", userID)
}

// StatsForPoster counts the applications to postings owned by posterID.
func (r *ApplicationRepository) StatsForPoster(ctx context.Context, posterID int64) (types.ApplicationStats, error) {
	return r.stats(ctx, "(o.posted_by = $1 OR s.posted_by = $1)", posterID)
}

func (r *ApplicationRepository) stats(ctx context.Context, where string, id int64) (types.ApplicationStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE a.status = 'submitted'),
			COUNT(*) FILTER (WHERE a.status = 'under_review'),
			COUNT(*) FILTER (WHERE a.status = 'shortlisted'),
			COUNT(*) FILTER (WHERE a.status = 'accepted'),
			COUNT(*) FILTER (WHERE a.status = 'rejected'),
			COUNT(*) FILTER (WHERE a.application_type = 'opportunity'),
			COUNT(*) FILTER (WHERE a.application_type = 'scholarship')
		FROM applications a
		LEFT JOIN opportunities o ON o.id = a.opportunity_id
		LEFT JOIN scholarships s ON s.id = a.scholarship_id
		WHERE ` + where
	var stats types.ApplicationStats
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&stats.TotalApplications,
		&stats.Submitted,
		&stats.UnderReview,
		&stats.Shortlisted,
		&stats.Accepted,
		&stats.Rejected,
		&stats.OpportunityApplications,
		&stats.ScholarshipApplications,
	); err != nil {
		return types.ApplicationStats{}, err
	}
	return stats, nil
}

func applicationFilterClause(where []string, args []any, filter types.ApplicationFilter) (string, []any) {
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("a.application_type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)))
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *ApplicationRepository) query(ctx context.Context, query string, args ...any) ([]types.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Application, 0)
	for rows.Next() {
		var (
			app           types.Application
			opportunityID sql.NullInt64
			scholarshipID sql.NullInt64
			applicant     types.Poster
		)
		if err := rows.Scan(
			&app.ID,
			&app.UserID,
			&app.Type,
			&opportunityID,
			&scholarshipID,
			&app.CoverLetter,
			&app.ResumeURL,
			&app.Status,
			&app.CreatedAt,
			&app.UpdatedAt,
			&app.PostingTitle,
			&app.Organization,
			&app.PostedBy,
			&applicant.FirstName,
			&applicant.LastName,
			&applicant.CurrentPosition,
		); err != nil {
			return nil, err
		}
		app.OpportunityID = int64Ptr(opportunityID)
		app.ScholarshipID = int64Ptr(scholarshipID)
		applicant.ID = app.UserID
		app.Applicant = &applicant
		items = append(items, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
