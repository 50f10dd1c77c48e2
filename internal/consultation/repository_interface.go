package consultation

import "context"

type Repository interface {
	FindByUser(ctx context.Context, userID int) (*Request, error)
	FindByID(ctx context.Context, id int) (*Request, error)
	Create(ctx context.Context, req Request) (*Request, error)
	List(ctx context.Context) ([]Request, error)
	UpdateStatus(ctx context.Context, id int, from, to string) (*Request, error)
}
