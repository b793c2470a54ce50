package trainer

import "context"

type Repository interface {
	FindByID(ctx context.Context, id int) (*Trainer, error)
	// MarkSessionCompleted bumps the trainer's lifetime completed-session
	// counter by one.
	MarkSessionCompleted(ctx context.Context, id int) error
}
