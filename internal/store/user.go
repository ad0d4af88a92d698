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

const userColumns = `
	id, email, first_name, last_name, role, graduation_year,
	COALESCE(degree, ''), COALESCE(major, ''), COALESCE(current_company, ''),
	COALESCE(current_position, ''), COALESCE(location, ''), COALESCE(bio, ''),
	COALESCE(skills, '[]'::jsonb), COALESCE(linkedin_url, ''), COALESCE(github_url, ''),
	COALESCE(portfolio_url, ''), COALESCE(profile_image, ''), is_verified, is_active,
	created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// LookupIdentity loads the fields needed to authenticate a request.
// The password digest is never selected.
func (r *UserRepository) LookupIdentity(ctx context.Context, id int64) (types.IdentityRecord, error) {
	const query = `
		SELECT id, email, first_name, last_name, role, is_active
		FROM users
		WHERE id = $1`
	var rec types.IdentityRecord
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Email,
		&rec.FirstName,
		&rec.LastName,
		&rec.Role,
		&rec.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.IdentityRecord{}, ErrNotFound
		}
		return types.IdentityRecord{}, err
	}
	return rec, nil
}

// GetCredentialsByEmail loads the digest for a login attempt.
func (r *UserRepository) GetCredentialsByEmail(ctx context.Context, email string) (types.Credentials, error) {
	const query = `
		SELECT id, password_hash, is_active
		FROM users
		WHERE lower(email) = lower($1)`
	var creds types.Credentials
	err := r.db.QueryRowContext(ctx, query, email).Scan(&creds.ID, &creds.PasswordHash, &creds.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Credentials{}, ErrNotFound
		}
		return types.Credentials{}, err
	}
	return creds, nil
}

func (r *UserRepository) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	const query = `SELECT password_hash FROM users WHERE id = $1`
	var digest string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return digest, nil
}

// Create inserts a user. A duplicate email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true

	skills, err := marshalStrings(user.Skills)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (
			email, password_hash, first_name, last_name, role, graduation_year,
			degree, major, current_company, current_position, location, bio, skills,
			linkedin_url, github_url, portfolio_url, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		nullableInt(user.GraduationYear),
		user.Degree,
		user.Major,
		user.CurrentCompany,
		user.CurrentPosition,
		user.Location,
		user.Bio,
		skills,
		user.LinkedInURL,
		user.GithubURL,
		user.PortfolioURL,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// GetActiveByID is GetByID restricted to active accounts.
func (r *UserRepository) GetActiveByID(ctx context.Context, id int64) (types.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if !user.IsActive {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, update types.ProfileUpdate) (types.User, error) {
	var skills any
	if update.Skills != nil {
		raw, err := marshalStrings(*update.Skills)
		if err != nil {
			return types.User{}, err
		}
		skills = raw
	}

	const query = `
		UPDATE users
		SET first_name = COALESCE($1, first_name),
			last_name = COALESCE($2, last_name),
			graduation_year = COALESCE($3, graduation_year),
			degree = COALESCE($4, degree),
			major = COALESCE($5, major),
			current_company = COALESCE($6, current_company),
			current_position = COALESCE($7, current_position),
			location = COALESCE($8, location),
			bio = COALESCE($9, bio),
			skills = COALESCE($10::jsonb, skills),
			linkedin_url = COALESCE($11, linkedin_url),
			github_url = COALESCE($12, github_url),
			portfolio_url = COALESCE($13, portfolio_url),
			updated_at = $14
		WHERE id = $15`
	result, err := r.db.ExecContext(
		ctx,
		query,
		nullableString(update.FirstName),
		nullableString(update.LastName),
		nullableInt(update.GraduationYear),
		nullableString(update.Degree),
		nullableString(update.Major),
		nullableString(update.CurrentCompany),
		nullableString(update.CurrentPosition),
		nullableString(update.Location),
		nullableString(update.Bio),
		skills,
		nullableString(update.LinkedInURL),
		nullableString(update.GithubURL),
		nullableString(update.PortfolioURL),
		time.Now(),
		id,
	)
	if err != nil {
		return types.User{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.User{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword replaces the stored digest.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, digest string) error {
	const query = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, digest, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// SetProfileImage stores the object key of the user's avatar.
func (r *UserRepository) SetProfileImage(ctx context.Context, id int64, key string) error {
	const query = `UPDATE users SET profile_image = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, key, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// SetActive flips the soft-deactivation flag. Rows are never deleted.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListDirectory returns active users of the given roles, optionally matching
// search against name, company and position.
func (r *UserRepository) ListDirectory(ctx context.Context, roles []types.Role, search string, offset, limit int) ([]types.User, int, error) {
	if len(roles) == 0 {
		return nil, 0, errors.New("at least one role is required")
	}

	args := make([]any, 0, len(roles)+3)
	placeholders := make([]string, 0, len(roles))
	for _, role := range roles {
		args = append(args, role)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	where := "is_active = TRUE AND role IN (" + strings.Join(placeholders, ", ") + ")"
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where += fmt.Sprintf(
			" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR current_company ILIKE $%d OR current_position ILIKE $%d)",
			n, n, n, n,
		)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args),
	)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Stats counts what a user has posted or requested, depending on their role.
func (r *UserRepository) Stats(ctx context.Context, id int64, role types.Role) (types.ProfileStats, error) {
	var stats types.ProfileStats
	count := func(query string) (*int, error) {
		var n int
		if err := r.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
			return nil, err
		}
		return &n, nil
	}

	var err error
	switch role {
	case types.RoleAlumni, types.RoleMentor:
		if stats.OpportunitiesPosted, err = count(`SELECT COUNT(*) FROM opportunities WHERE posted_by = $1`); err != nil {
			return stats, err
		}
		if stats.ScholarshipsPosted, err = count(`SELECT COUNT(*) FROM scholarships WHERE posted_by = $1`); err != nil {
			return stats, err
		}
		if stats.MentorshipPrograms, err = count(`SELECT COUNT(*) FROM mentorship_programs WHERE mentor_id = $1`); err != nil {
			return stats, err
		}
	case types.RoleStudent:
		if stats.ApplicationsSubmitted, err = count(`SELECT COUNT(*) FROM applications WHERE user_id = $1`); err != nil {
			return stats, err
		}
		if stats.MentorshipSessions, err = count(`SELECT COUNT(*) FROM mentorship_sessions WHERE mentee_id = $1`); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user      types.User
		gradYear  sql.NullInt64
		rawSkills []byte
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&gradYear,
		&user.Degree,
		&user.Major,
		&user.CurrentCompany,
		&user.CurrentPosition,
		&user.Location,
		&user.Bio,
		&rawSkills,
		&user.LinkedInURL,
		&user.GithubURL,
		&user.PortfolioURL,
		&user.ProfileImage,
		&user.IsVerified,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, err
	}
	if gradYear.Valid {
		year := int(gradYear.Int64)
		user.GraduationYear = &year
	}
	if user.Skills, err = unmarshalStrings(rawSkills); err != nil {
		return types.User{}, err
	}
	return user, nil
}
