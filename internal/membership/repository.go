package membership

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

func (r *repository) GetActiveForMember(ctx context.Context, memberID int) (*Membership, error) {
	m := &Membership{}
	err := r.db.GetContext(ctx, m, `
		SELECT id, member_id, plan, status, valid_from, valid_until, created_at, updated_at
		FROM memberships
		WHERE member_id = $1
		  AND status = 'active'
		  AND valid_from <= NOW()
		  AND valid_until >= NOW()
		ORDER BY valid_until DESC
		LIMIT 1
	`, memberID)
	if err != nil {
		return nil, err
	}

	return m, nil
}
