package session

import (
	"context"
	"time"

	"fitclub/internal/policy"
)

type Repository interface {
	Create(ctx context.Context, s *Session) (*Session, error)
	GetByID(ctx context.Context, id int) (*Session, error)
	// GetByPaymentSession returns sql.ErrNoRows when no booking carries the id.
	GetByPaymentSession(ctx context.Context, paymentSessionID string) (*Session, error)
	// ListActiveForTrainerDate returns pending and confirmed sessions only,
	// the set conflict checks run against.
	ListActiveForTrainerDate(ctx context.Context, trainerID int, date time.Time) ([]Session, error)
	ListForTrainerDate(ctx context.Context, trainerID int, date time.Time) ([]Session, error)
	ListForMember(ctx context.Context, memberID int) ([]Session, error)
	// UpdateStatus flips the status and returns the status the row had before,
	// in one guarded statement. ErrSessionTerminal when the row was already
	// cancelled or completed, sql.ErrNoRows when it does not exist.
	UpdateStatus(ctx context.Context, id int, newStatus Status) (Status, error)
	// Cancel sets status=cancelled with reason and refund outcome, guarded the
	// same way as UpdateStatus.
	Cancel(ctx context.Context, id int, reason string, outcome policy.Outcome) error
}
