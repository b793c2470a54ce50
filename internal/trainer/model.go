package trainer

import "time"

type Trainer struct {
	ID                int       `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Email             string    `db:"email" json:"email"`
	Specialty         string    `db:"specialty" json:"specialty"`
	Active            bool      `db:"active" json:"active"`
	SessionsCompleted int       `db:"sessions_completed" json:"sessions_completed"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
