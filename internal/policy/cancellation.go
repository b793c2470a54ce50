// Package policy decides the refund outcome of a cancellation.
package policy

import "time"

type Role string

type Outcome string

const (
	// RoleRequester is the member who made the booking or reservation.
	RoleRequester Role = "requester"
	// RoleProvider is the trainer (or staff acting for the resource side).
	RoleProvider Role = "provider"

	OutcomePending  Outcome = "pending"
	OutcomePaid     Outcome = "paid"
	OutcomeRefunded Outcome = "refunded"
)

// FullRefundNotice is the notice window that always yields a full refund.
const FullRefundNotice = 24 * time.Hour

// Decide returns the refund outcome for a cancellation happening at now of
// something scheduled at scheduledStart:
//
//   - at least 24h notice: refunded
//   - provider-initiated: refunded regardless of notice
//   - requester-initiated inside the window: pending, to be settled by an
//     external workflow
func Decide(scheduledStart, now time.Time, cancelledBy Role) Outcome {
	if scheduledStart.Sub(now) >= FullRefundNotice {
		return OutcomeRefunded
	}
	if cancelledBy == RoleProvider {
		return OutcomeRefunded
	}
	return OutcomePending
}
