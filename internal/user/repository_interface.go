package user

import "context"

type Repository interface {
	Create(ctx context.Context, fullName, email, passwordHash, role, locale string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]User, error)
	SetPaid(ctx context.Context, id int, paid bool) (*User, error)
}
