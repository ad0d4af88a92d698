package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alumni-connect/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMock opens a sqlmock database. The default matcher is regexp; pass a
// matcher to replace it.
func newMock(t *testing.T, matcher ...sqlmock.QueryMatcher) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	var (
		db   *sql.DB
		mock sqlmock.Sqlmock
		err  error
	)
	if len(matcher) > 0 {
		db, mock, err = sqlmock.New(sqlmock.QueryMatcherOption(matcher[0]))
	} else {
		db, mock, err = sqlmock.New()
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var userRowColumns = []string{
	"id", "email", "first_name", "last_name", "role", "graduation_year",
	"degree", "major", "current_company", "current_position", "location", "bio",
	"skills", "linkedin_url", "github_url", "portfolio_url", "profile_image",
	"is_verified", "is_active", "created_at", "updated_at",
}

func TestLookupIdentityNeverSelectsDigest(t *testing.T) {
	noDigest := sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		if strings.Contains(actual, "password_hash") {
			return errors.New("identity lookup must not read password_hash")
		}
		return sqlmock.QueryMatcherRegexp.Match(expected, actual)
	})
	db, mock := newMock(t, noDigest)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT id, email, first_name, last_name, role, is_active\s+FROM users`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "role", "is_active"}).
			AddRow(4, "grace@example.com", "Grace", "Hopper", "mentor", true))

	rec, err := repo.LookupIdentity(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, types.IdentityRecord{
		ID:        4,
		Email:     "grace@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		Role:      types.RoleMentor,
		IsActive:  true,
	}, rec)
}

func TestLookupIdentityNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users`).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := repo.LookupIdentity(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCredentialsByEmailIsCaseInsensitive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("Ada@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash", "is_active"}).AddRow(1, "$2a$digest", false))

	creds, err := repo.GetCredentialsByEmail(context.Background(), "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), creds.ID)
	assert.False(t, creds.IsActive)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), types.User{Email: "ada@example.com", Role: types.RoleStudent})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(
			"ada@example.com", "$2a$digest", "Ada", "Lovelace", types.RoleAlumni, nil,
			"", "", "", "", "", "", `["math"]`, "", "", "", true, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	user, err := repo.Create(context.Background(), types.User{
		Email:        "ada@example.com",
		PasswordHash: "$2a$digest",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         types.RoleAlumni,
		Skills:       []string{"math"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), user.ID)
	assert.True(t, user.IsActive)
}

func TestGetByIDDecodesProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			3, "ada@example.com", "Ada", "Lovelace", "alumni", 2015,
			"BSc", "Math", "Analytical Engines", "Engineer", "London", "",
			[]byte(`["go","sql"]`), "", "", "", "avatars/3.png",
			true, true, now, now,
		))

	user, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, user.GraduationYear)
	assert.Equal(t, 2015, *user.GraduationYear)
	assert.Equal(t, []string{"go", "sql"}, user.Skills)
	assert.Equal(t, "avatars/3.png", user.ProfileImage)
}

func TestGetActiveByIDHidesInactive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			3, "ada@example.com", "Ada", "Lovelace", "alumni", nil,
			"", "", "", "", "", "", []byte(`[]`), "", "", "", "",
			false, false, now, now,
		))

	_, err := repo.GetActiveByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET password_hash = \$1`).
		WithArgs("$2a$new", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePassword(context.Background(), 5, "$2a$new"))

	mock.ExpectExec(`UPDATE users SET password_hash = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 6, "$2a$new"), ErrNotFound)
}

func TestListDirectoryBuildsRoleFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE is_active = TRUE AND role IN \(\$1, \$2\) AND \(first_name ILIKE \$3`).
		WithArgs(types.RoleAlumni, types.RoleMentor, "%acme%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`LIMIT \$4 OFFSET \$5`).
		WithArgs(types.RoleAlumni, types.RoleMentor, "%acme%", 20, 0).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	users, total, err := repo.ListDirectory(context.Background(), []types.Role{types.RoleAlumni, types.RoleMentor}, " acme ", 0, 20)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Zero(t, total)
}

func TestStatsByRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM applications WHERE user_id`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`FROM mentorship_sessions WHERE mentee_id`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	stats, err := repo.Stats(context.Background(), 1, types.RoleStudent)
	require.NoError(t, err)
	require.NotNil(t, stats.ApplicationsSubmitted)
	assert.Equal(t, 3, *stats.ApplicationsSubmitted)
	assert.Equal(t, 1, *stats.MentorshipSessions)
	assert.Nil(t, stats.OpportunitiesPosted)
}
