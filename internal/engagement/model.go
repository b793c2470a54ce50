package engagement

import "time"

// Method is how a member checked in at a location.
type Method string

const (
	MethodQR     Method = "qr"
	MethodApp    Method = "app"
	MethodManual Method = "manual"
)

func ValidMethod(m Method) bool {
	switch m {
	case MethodQR, MethodApp, MethodManual:
		return true
	}
	return false
}

// CheckInEvent is the source of truth for engagement. Events are created on
// check-in, stamped once on check-out and immutable after that.
type CheckInEvent struct {
	ID              int        `db:"id" json:"id"`
	MemberID        int        `db:"member_id" json:"member_id"`
	LocationID      int        `db:"location_id" json:"location_id"`
	Method          Method     `db:"method" json:"method"`
	CheckInTime     time.Time  `db:"check_in_time" json:"check_in_time"`
	CheckOutTime    *time.Time `db:"check_out_time" json:"check_out_time,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Open reports whether the event has not been checked out yet.
func (e *CheckInEvent) Open() bool {
	return e.CheckOutTime == nil
}

// EngagementRecord is a rebuildable projection over the check-in log, one row
// per member. Every qualifying event overwrites the derived fields in full.
type EngagementRecord struct {
	ID                   int        `db:"id" json:"id"`
	MemberID             int        `db:"member_id" json:"member_id"`
	Score                int        `db:"score" json:"score"`
	CheckInCount         int        `db:"check_in_count" json:"check_in_count"`
	CheckInStreak        int        `db:"check_in_streak" json:"check_in_streak"`
	LastCheckIn          *time.Time `db:"last_check_in" json:"last_check_in,omitempty"`
	WorkoutCompletions   int        `db:"workout_completions" json:"workout_completions"`
	ChallengeCompletions int        `db:"challenge_completions" json:"challenge_completions"`
	SocialInteractions   int        `db:"social_interactions" json:"social_interactions"`
	LastUpdated          time.Time  `db:"last_updated" json:"last_updated"`
}

type Achievement struct {
	ID           int       `db:"id" json:"id"`
	MemberID     int       `db:"member_id" json:"member_id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Icon         string    `db:"icon" json:"icon"`
	TriggerCount int       `db:"trigger_count" json:"trigger_count"`
	UnlockedAt   time.Time `db:"unlocked_at" json:"unlocked_at"`
}

type StreakSummary struct {
	Streak        int        `json:"streak"`
	TotalCheckIns int        `json:"total_check_ins"`
	LastCheckIn   *time.Time `json:"last_check_in,omitempty"`
}

type CheckInRequest struct {
	LocationID int    `json:"location_id" binding:"required,min=1"`
	Method     string `json:"method" binding:"required,oneof=qr app manual"`
}

type CheckOutResponse struct {
	ID              int    `json:"id"`
	DurationMinutes int    `json:"duration_minutes"`
	CheckOutTime    string `json:"check_out_time"`
}
