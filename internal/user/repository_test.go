package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "email", "full_name", "password_hash", "role", "paid", "locale", "created_at", "updated_at"}

func setupUserMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func TestCreateAndFindUser(t *testing.T) {
	repo, mock, close := setupUserMock(t)
	defer close()

	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (full_name, email, password_hash, role, locale) VALUES ($1, $2, $3, $4, $5) RETURNING id")).
		WithArgs("Alice", "a@example.com", "hash", "user", "fr").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(1, "a@example.com", "Alice", "hash", "user", false, "fr", now, now))

	u, err := repo.Create(ctx, "Alice", "a@example.com", "hash", "user", "fr")
	require.NoError(t, err)
	require.Equal(t, 1, u.ID)
	require.Equal(t, "fr", u.Locale)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(1, "a@example.com", "Alice", "hash", "user", false, "fr", now, now))

	fu, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, "Alice", fu.FullName)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.EmailExists(ctx, "a@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock, close := setupUserMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.FindByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetPaid(t *testing.T) {
	repo, mock, close := setupUserMock(t)
	defer close()

	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET paid = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(true, 7).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(7, "b@example.com", "Bob", "hash", "user", true, "en", now, now))

	u, err := repo.SetPaid(context.Background(), 7, true)
	require.NoError(t, err)
	assert.True(t, u.Paid)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET paid = $1")).
		WithArgs(false, 8).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err = repo.SetPaid(context.Background(), 8, false)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	repo, mock, close := setupUserMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(2, "b@example.com", "Bob", "h", "user", true, "en", now, now).
			AddRow(1, "a@example.com", "Alice", "h", "admin", false, "fr", now, now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[1].Role)
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo, mock, close := setupUserMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Bob", "b@example.com", "hash", "user", "en").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	u, err := repo.Create(context.Background(), "Bob", "b@example.com", "hash", "user", "en")

	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrEmailExists)
	require.NoError(t, mock.ExpectationsWereMet())
}
