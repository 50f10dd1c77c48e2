package ticket

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticketRowColumns = []string{"id", "image_url", "thumbnail_url", "match_description", "payout_amount", "verified", "ai_summary", "visibility", "created_at"}

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestCreateTicket(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tickets")).
		WithArgs("https://cdn.example/t.png", "https://cdn.example/t.png", "Arsenal v Chelsea", 250.0, true, "", VisibilityPublic).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).
			AddRow(1, "https://cdn.example/t.png", "https://cdn.example/t.png", "Arsenal v Chelsea", 250.0, true, "", "public", now))

	got, err := repo.Create(context.Background(), Ticket{
		ImageURL:         "https://cdn.example/t.png",
		ThumbnailURL:     "https://cdn.example/t.png",
		MatchDescription: "Arsenal v Chelsea",
		PayoutAmount:     250,
		Verified:         true,
		Visibility:       VisibilityPublic,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPublicFiltersHidden(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE visibility = 'public'")).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).
			AddRow(2, "a", "a", "m", 10.0, false, "", "public", time.Now()))

	tickets, err := repo.ListPublic(context.Background())
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleVisibility(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SET visibility = CASE WHEN visibility = 'public' THEN 'hidden' ELSE 'public' END")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).
			AddRow(3, "a", "a", "m", 10.0, false, "", "hidden", time.Now()))

	got, err := repo.ToggleVisibility(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, VisibilityHidden, got.Visibility)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleVisibilityNotFound(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns))

	_, err := repo.ToggleVisibility(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
