package ticket

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("ticket not found")

const ticketColumns = `id, image_url, thumbnail_url, match_description, payout_amount, verified, ai_summary, visibility, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, t Ticket) (*Ticket, error) {
	query := `
		INSERT INTO tickets (image_url, thumbnail_url, match_description, payout_amount, verified, ai_summary, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + ticketColumns

	var created Ticket
	err := r.db.GetContext(ctx, &created, query,
		t.ImageURL, t.ThumbnailURL, t.MatchDescription, t.PayoutAmount, t.Verified, t.AISummary, t.Visibility)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *repository) List(ctx context.Context) ([]Ticket, error) {
	tickets := []Ticket{}
	err := r.db.SelectContext(ctx, &tickets, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) ListPublic(ctx context.Context) ([]Ticket, error) {
	tickets := []Ticket{}
	err := r.db.SelectContext(ctx, &tickets,
		`SELECT `+ticketColumns+` FROM tickets WHERE visibility = 'public' ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) ToggleVisibility(ctx context.Context, id int) (*Ticket, error) {
	query := `
		UPDATE tickets
		SET visibility = CASE WHEN visibility = 'public' THEN 'hidden' ELSE 'public' END
		WHERE id = $1
		RETURNING ` + ticketColumns

	var t Ticket
	err := r.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
