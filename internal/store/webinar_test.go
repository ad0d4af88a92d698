package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alumni-connect/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectWebinarLock(mock sqlmock.Sqlmock, id int64, registered int) {
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "scheduled_date", "max_participants", "registration_required", "is_active"}).
			AddRow(id, time.Now().Add(24*time.Hour), 2, true, true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM webinar_registrations`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(registered))
}

func TestWebinarRegister(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebinarRepository(db)

	expectWebinarLock(mock, 5, 1)
	mock.ExpectExec(`INSERT INTO webinar_registrations`).WithArgs(int64(5), int64(8), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen types.Webinar
	err := repo.Register(context.Background(), 5, 8, func(w types.Webinar) error {
		seen = w
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen.RegisteredCount)
	assert.Equal(t, 2, seen.MaxParticipants)
}

func TestWebinarRegisterCheckRejects(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebinarRepository(db)

	expectWebinarLock(mock, 5, 2)
	mock.ExpectRollback()

	full := errors.New("full")
	err := repo.Register(context.Background(), 5, 8, func(w types.Webinar) error {
		if w.RegisteredCount >= w.MaxParticipants {
			return full
		}
		return nil
	})
	assert.ErrorIs(t, err, full)
}

func TestWebinarRegisterDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebinarRepository(db)

	expectWebinarLock(mock, 5, 0)
	mock.ExpectExec(`INSERT INTO webinar_registrations`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Register(context.Background(), 5, 8, nil)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestWebinarRegisterMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebinarRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.Register(context.Background(), 5, 8, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
