package contact

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, userID int, subject, message string) (*Message, error)
	List(ctx context.Context) ([]Message, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, userID int, subject, message string) (*Message, error) {
	query := `
		INSERT INTO contact_messages (user_id, subject, message, status)
		VALUES ($1, $2, $3, 'new')
		RETURNING id, user_id, subject, message, status, created_at`

	var m Message
	if err := r.db.GetContext(ctx, &m, query, userID, subject, message); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) List(ctx context.Context) ([]Message, error) {
	msgs := []Message{}
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, user_id, subject, message, status, created_at FROM contact_messages ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
