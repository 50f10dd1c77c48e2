package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("payment not found")

const paymentColumns = `id, user_id, amount, currency, status, merchant_reference, tracking_id, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, userID int, amount float64, currency, merchantReference string) (*Payment, error) {
	query := `
		INSERT INTO payments (user_id, amount, currency, status, merchant_reference)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING ` + paymentColumns

	var p Payment
	if err := r.db.GetContext(ctx, &p, query, userID, amount, currency, merchantReference); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) SetTrackingID(ctx context.Context, id int, trackingID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET tracking_id = $1, updated_at = NOW() WHERE id = $2`,
		trackingID, id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// MarkFailed only moves a pending payment; completed rows are immutable.
func (r *repository) MarkFailed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = 'failed', updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		id,
	)
	return err
}

func (r *repository) FindByID(ctx context.Context, id int) (*Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *repository) FindByTrackingID(ctx context.Context, trackingID string) (*Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE tracking_id = $1`, trackingID)
}

func (r *repository) findOne(ctx context.Context, query string, arg interface{}) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Complete performs the pending to completed transition and unlocks the
// owner in one transaction. The conditional update picks a single winner
// among concurrent reconcilers; everyone else gets false and must not
// repeat side effects.
func (r *repository) Complete(ctx context.Context, id, userID int) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = 'completed', updated_at = NOW() WHERE id = $1 AND status <> 'completed'`,
		id,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET paid = TRUE, updated_at = NOW() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Payment, error) {
	payments := []Payment{}
	err := r.db.SelectContext(ctx, &payments,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) List(ctx context.Context) ([]WithUser, error) {
	rows := []WithUser{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.user_id, p.amount, p.currency, p.status, p.merchant_reference,
		       p.tracking_id, p.created_at, p.updated_at, u.email AS user_email
		FROM payments p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
