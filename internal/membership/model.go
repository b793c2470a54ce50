package membership

import "time"

type PlanType string
type Status string

const (
	PlanBasic    PlanType = "basic"
	PlanPremium  PlanType = "premium"
	PlanElite    PlanType = "elite"

	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

type Membership struct {
	ID         int       `db:"id" json:"id"`
	MemberID   int       `db:"member_id" json:"member_id"`
	Plan       PlanType  `db:"plan" json:"plan"`
	Status     Status    `db:"status" json:"status"`
	ValidFrom  time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil time.Time `db:"valid_until" json:"valid_until"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
