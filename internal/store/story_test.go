package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alumni-connect/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryLike(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO story_likes`).WithArgs(int64(7), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET likes_count = likes_count \+ 1`).WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT likes_count FROM success_stories`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(4))
	mock.ExpectCommit()

	count, err := repo.Like(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestStoryLikeTwiceConflicts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO story_likes`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Like(context.Background(), 7, 2)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestStoryUnlikeWithoutLike(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM story_likes`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Unlike(context.Background(), 7, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoryListFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStoryRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM success_stories s WHERE s.is_published = TRUE AND s.category = \$1`).
		WithArgs(types.StoryCareerChange).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY s.is_featured DESC`).
		WithArgs(types.StoryCareerChange, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "author_id", "title", "content", "category", "tags", "is_published", "is_featured",
			"likes_count", "views_count", "created_at", "updated_at", "first_name", "last_name", "current_position",
		}).AddRow(1, 3, "From teaching to tech", "...", "career_change", []byte(`["bootcamp"]`), true, false,
			2, 10, now, now, "Ada", "Lovelace", "Engineer"))

	stories, total, err := repo.List(context.Background(), types.StoryCareerChange, "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, stories, 1)
	assert.Equal(t, []string{"bootcamp"}, stories[0].Tags)
	assert.Equal(t, int64(3), stories[0].Author.ID)
}
