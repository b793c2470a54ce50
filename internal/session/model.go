package session

import (
	"time"

	"fitclub/internal/policy"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// IsTerminal reports whether a session can no longer change status.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Mode string

const (
	ModeIncluded Mode = "included_with_membership"
	ModePaid     Mode = "paid"
)

type Type string

const (
	TypePersonalTraining  Type = "personal_training"
	TypeFitnessAssessment Type = "fitness_assessment"
	TypeNutritionConsult  Type = "nutrition_consult"
	TypeGroupClass        Type = "group_class"
)

func ValidType(t Type) bool {
	switch t {
	case TypePersonalTraining, TypeFitnessAssessment, TypeNutritionConsult, TypeGroupClass:
		return true
	}
	return false
}

// Session is a trainer calendar slot held by one member. Times are modeled as
// a calendar date plus minutes since midnight; sessions never cross midnight.
type Session struct {
	ID                 int             `db:"id" json:"id"`
	TrainerID          int             `db:"trainer_id" json:"trainer_id"`
	MemberID           int             `db:"member_id" json:"member_id"`
	Type               Type            `db:"session_type" json:"session_type"`
	Date               time.Time       `db:"session_date" json:"session_date"`
	StartMinute        int             `db:"start_minute" json:"start_minute"`
	EndMinute          int             `db:"end_minute" json:"end_minute"`
	Status             Status          `db:"status" json:"status"`
	Mode               Mode            `db:"mode" json:"mode"`
	PaymentSessionID   *string         `db:"payment_session_id" json:"payment_session_id,omitempty"`
	CancellationReason *string         `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RefundOutcome      *policy.Outcome `db:"refund_outcome" json:"refund_outcome,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// StartsAt is the session's wall-clock start, used by the cancellation policy.
func (s *Session) StartsAt() time.Time {
	y, m, d := s.Date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, s.Date.Location())
	return midnight.Add(time.Duration(s.StartMinute) * time.Minute)
}

func (s *Session) DurationMinutes() int {
	return s.EndMinute - s.StartMinute
}

type BookRequest struct {
	TrainerID       int    `json:"trainer_id" binding:"required" validate:"required,gt=0"`
	SessionType     string `json:"session_type" binding:"required" validate:"required"`
	Date            string `json:"date" binding:"required" validate:"required,datetime=2006-01-02" example:"2025-06-01"`
	StartTime       string `json:"start_time" binding:"required" validate:"required,datetime=15:04" example:"10:00"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1" validate:"required,gt=0,lte=1440"`
}

type BookPaidRequest struct {
	BookRequest
	PaymentSessionID string `json:"payment_session_id" binding:"required" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type CancelResponse struct {
	Status        Status         `json:"status"`
	RefundOutcome policy.Outcome `json:"refund_outcome"`
}
