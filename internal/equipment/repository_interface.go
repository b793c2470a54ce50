package equipment

import (
	"context"
	"time"

	"fitclub/internal/policy"
)

type Repository interface {
	GetItemByID(ctx context.Context, id int) (*Item, error)
	CreateReservation(ctx context.Context, r *Reservation) (*Reservation, error)
	GetReservationByID(ctx context.Context, id int) (*Reservation, error)
	// ListOverlapping returns confirmed reservations for the item whose
	// intervals intersect [start, end).
	ListOverlapping(ctx context.Context, equipmentID int, start, end time.Time) ([]Reservation, error)
	ListForEquipment(ctx context.Context, equipmentID int) ([]Reservation, error)
	ListForMember(ctx context.Context, memberID int) ([]Reservation, error)
	// CancelReservation is guarded the same way session cancellation is:
	// ErrReservationTerminal when already cancelled or completed.
	CancelReservation(ctx context.Context, id int, reason string, outcome policy.Outcome) error
	CompleteReservation(ctx context.Context, id int) error
}
