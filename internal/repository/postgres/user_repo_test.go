package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"calswap/internal/errs"
	"calswap/internal/model"
)

func TestUserRepo_Create_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	u := &model.User{ID: uuid.Must(uuid.NewV4()), Username: "alice", PwdHash: []byte{1}, SaltAuth: []byte{2}}
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Username, u.PwdHash, u.SaltAuth).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := r.Create(context.Background(), u)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE username=\$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := r.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByUsername_StorageErrorSurfaces(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT .* FROM users WHERE username=\$1`).
		WithArgs("alice").
		WillReturnError(boom)

	// A broken connection must not read as a missing user.
	_, err := r.GetByUsername(context.Background(), "alice")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByID_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	id := uuid.Must(uuid.NewV4())
	rows := pgxmock.NewRows([]string{"id", "username", "pwd_hash", "salt_auth", "created_at"}).
		AddRow(id, "alice", []byte{1}, []byte{2}, repoNow)
	mock.ExpectQuery(`SELECT .* FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(rows)

	u, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
}
