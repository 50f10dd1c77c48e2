package consultation

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("consultation request not found")
	ErrAlreadyExists = errors.New("consultation request already exists for user")
	ErrStaleStatus   = errors.New("consultation request status changed concurrently")
)

const requestColumns = `id, user_id, payment_id, user_email, payment_amount, payment_method, status, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByUser(ctx context.Context, userID int) (*Request, error) {
	return r.findOne(ctx, `SELECT `+requestColumns+` FROM consultation_requests WHERE user_id = $1`, userID)
}

func (r *repository) FindByID(ctx context.Context, id int) (*Request, error) {
	return r.findOne(ctx, `SELECT `+requestColumns+` FROM consultation_requests WHERE id = $1`, id)
}

func (r *repository) findOne(ctx context.Context, query string, arg interface{}) (*Request, error) {
	var req Request
	err := r.db.GetContext(ctx, &req, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a pending request. The unique user_id constraint decides
// concurrent claims: the loser gets ErrAlreadyExists.
func (r *repository) Create(ctx context.Context, req Request) (*Request, error) {
	query := `
		INSERT INTO consultation_requests (user_id, payment_id, user_email, payment_amount, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT (user_id) DO NOTHING
		RETURNING ` + requestColumns

	var created Request
	err := r.db.GetContext(ctx, &created, query, req.UserID, req.PaymentID, req.UserEmail, req.PaymentAmount, req.PaymentMethod)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *repository) List(ctx context.Context) ([]Request, error) {
	reqs := []Request{}
	err := r.db.SelectContext(ctx, &reqs, `SELECT `+requestColumns+` FROM consultation_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int, from, to string) (*Request, error) {
	query := `
		UPDATE consultation_requests SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + requestColumns

	var req Request
	err := r.db.GetContext(ctx, &req, query, to, id, from)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaleStatus
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}
