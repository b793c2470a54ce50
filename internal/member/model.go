package member

import "time"

// Member is the slice of the account directory this core reads: enough to
// address notifications and attribute bookings. Account lifecycle is owned by
// the identity service.
type Member struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
