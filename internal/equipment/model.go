package equipment

import (
	"time"

	"fitclub/internal/policy"
)

// Item is one reservable equipment type with TotalUnits interchangeable
// physical units. Units are fungible and not tracked individually.
type Item struct {
	ID         int       `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Category   string    `db:"category" json:"category"`
	TotalUnits int       `db:"total_units" json:"total_units"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

type Reservation struct {
	ID                 int             `db:"id" json:"id"`
	EquipmentID        int             `db:"equipment_id" json:"equipment_id"`
	MemberID           int             `db:"member_id" json:"member_id"`
	StartTime          time.Time       `db:"start_time" json:"start_time"`
	EndTime            time.Time       `db:"end_time" json:"end_time"`
	Status             Status          `db:"status" json:"status"`
	Notes              *string         `db:"notes" json:"notes,omitempty"`
	CancellationReason *string         `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RefundOutcome      *policy.Outcome `db:"refund_outcome" json:"refund_outcome,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

type ReserveRequest struct {
	StartTime string `json:"start_time" binding:"required" validate:"required,datetime=2006-01-02T15:04:05Z07:00" example:"2025-06-01T14:00:00Z"`
	EndTime   string `json:"end_time" binding:"required" validate:"required,datetime=2006-01-02T15:04:05Z07:00" example:"2025-06-01T15:00:00Z"`
	Notes     string `json:"notes" validate:"max=500"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type CancelResponse struct {
	Status        Status         `json:"status"`
	RefundOutcome policy.Outcome `json:"refund_outcome"`
}
