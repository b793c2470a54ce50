package member

import "context"

type Repository interface {
	FindByID(ctx context.Context, id int) (*Member, error)
}
