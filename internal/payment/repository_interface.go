package payment

import "context"

type Repository interface {
	Create(ctx context.Context, userID int, amount float64, currency, merchantReference string) (*Payment, error)
	SetTrackingID(ctx context.Context, id int, trackingID string) error
	MarkFailed(ctx context.Context, id int) error
	FindByID(ctx context.Context, id int) (*Payment, error)
	FindByTrackingID(ctx context.Context, trackingID string) (*Payment, error)
	Complete(ctx context.Context, id, userID int) (bool, error)
	ListByUser(ctx context.Context, userID int) ([]Payment, error)
	List(ctx context.Context) ([]WithUser, error)
}
