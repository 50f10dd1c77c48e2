package ticket

import "context"

type Repository interface {
	Create(ctx context.Context, t Ticket) (*Ticket, error)
	List(ctx context.Context) ([]Ticket, error)
	ListPublic(ctx context.Context) ([]Ticket, error)
	ToggleVisibility(ctx context.Context, id int) (*Ticket, error)
}
