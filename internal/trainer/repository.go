package trainer

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id int) (*Trainer, error) {
	query := `
		SELECT id, name, email, specialty, active, sessions_completed, created_at
		FROM trainers
		WHERE id = $1
	`

	var t Trainer
	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *repository) MarkSessionCompleted(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE trainers
		SET sessions_completed = sessions_completed + 1
		WHERE id = $1
	`, id)
	return err
}
