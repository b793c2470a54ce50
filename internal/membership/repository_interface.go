package membership

import "context"

type Repository interface {
	// GetActiveForMember returns the member's currently valid membership, or
	// sql.ErrNoRows when none exists.
	GetActiveForMember(ctx context.Context, memberID int) (*Membership, error)
}
