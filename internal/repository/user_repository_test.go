package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-api/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, password_hash, email, role, created_at)")).
		WithArgs("alice", "hash", nil, model.RoleUser, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	u := &model.User{Username: "alice", PasswordHash: "hash", Role: model.RoleUser, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint64(7), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_Duplicates(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want error
	}{
		{"username", "Duplicate entry 'alice' for key 'users.uq_users_username'", ErrDuplicateUsername},
		{"email", "Duplicate entry 'a@x.io' for key 'users.uq_users_email'", ErrDuplicateEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectExec("INSERT INTO users").
				WillReturnError(&mysql.MySQLError{Number: 1062, Message: tc.msg})

			u := &model.User{Username: "alice", PasswordHash: "hash", Email: "a@x.io", Role: model.RoleUser}
			err := NewUserRepo(db).Create(context.Background(), u)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUserRepo_ExistsByUsername(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewUserRepo(db).ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM users WHERE username = \\?").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "email", "role", "created_at"}))

	_, err := NewUserRepo(db).GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_GetByID_NullEmail(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("FROM users WHERE id = \\?").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "email", "role", "created_at"}).
			AddRow(3, "bob", "hash", nil, "USER", created))

	u, err := NewUserRepo(db).GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.Empty(t, u.Email)
	assert.Equal(t, created, u.CreatedAt)
}
