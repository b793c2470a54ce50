package equipment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitclub/internal/logger"
	"fitclub/internal/member"
	"fitclub/internal/metrics"
	"fitclub/internal/notify"
	"fitclub/internal/policy"
	"fitclub/internal/schedule"
)

var (
	ErrEquipmentNotFound   = errors.New("equipment not found")
	ErrInvalidInterval     = errors.New("end time must be after start time")
	ErrCapacityExceeded    = errors.New("equipment fully booked for this interval")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrNotCancellable      = errors.New("reservation cannot be cancelled")
	ErrNotCompletable      = errors.New("reservation cannot be completed")
)

type Service interface {
	Reserve(ctx context.Context, equipmentID, memberID int, start, end time.Time, notes string) (*Reservation, error)
	Cancel(ctx context.Context, reservationID int, reason string) (*Reservation, error)
	Complete(ctx context.Context, reservationID int) (*Reservation, error)
	GetReservation(ctx context.Context, reservationID int) (*Reservation, error)
	ListForEquipment(ctx context.Context, equipmentID int) ([]Reservation, error)
	ListForMember(ctx context.Context, memberID int) ([]Reservation, error)
}

type service struct {
	repo       Repository
	memberRepo member.Repository
	notifier   notify.Dispatcher
	locks      *schedule.KeyedMutex
	now        func() time.Time
}

func NewService(repo Repository, memberRepo member.Repository, notifier notify.Dispatcher, locks *schedule.KeyedMutex) Service {
	return &service{
		repo:       repo,
		memberRepo: memberRepo,
		notifier:   notifier,
		locks:      locks,
		now:        time.Now,
	}
}

func (s *service) Reserve(ctx context.Context, equipmentID, memberID int, start, end time.Time, notes string) (*Reservation, error) {
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}

	item, err := s.repo.GetItemByID(ctx, equipmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	if !item.Active {
		return nil, ErrEquipmentNotFound
	}

	// capacity check and insert see a consistent view only under the
	// per-item lock
	lockKey := fmt.Sprintf("equipment:%d", equipmentID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	existing, err := s.repo.ListOverlapping(ctx, equipmentID, start, end)
	if err != nil {
		return nil, err
	}

	intervals := make([]schedule.Interval, 0, len(existing))
	for _, r := range existing {
		intervals = append(intervals, schedule.Interval{Start: r.StartTime, End: r.EndTime})
	}

	// Conservative: any reservation touching the window occupies a unit for
	// the whole request. Never over-allocates; may under-utilize on
	// pathological interleavings.
	candidate := schedule.Interval{Start: start, End: end}
	if schedule.CountOverlapping(candidate, intervals) >= item.TotalUnits {
		metrics.RecordCapacityRejection()
		return nil, ErrCapacityExceeded
	}

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	created, err := s.repo.CreateReservation(ctx, &Reservation{
		EquipmentID: equipmentID,
		MemberID:    memberID,
		StartTime:   start,
		EndTime:     end,
		Status:      StatusConfirmed,
		Notes:       notesPtr,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordReservation()
	s.notifyReserved(ctx, created, item.Name)

	return created, nil
}

func (s *service) notifyReserved(ctx context.Context, res *Reservation, itemName string) {
	m, err := s.memberRepo.FindByID(ctx, res.MemberID)
	if err != nil {
		logger.Errorf("Reservation %d confirmed but member %d lookup failed: %v", res.ID, res.MemberID, err)
		return
	}

	if err := s.notifier.Send(ctx, notify.Event{
		Kind:        notify.KindReservationConfirmed,
		RecipientID: m.ID,
		Email:       m.Email,
		Name:        m.Name,
		Title:       "Equipment Reserved",
		Message: fmt.Sprintf("Hi %s,\n\n%s is reserved for you from %s to %s.\n\n- FitClub Team",
			m.Name, itemName, res.StartTime.Format("Jan 2, 2006 at 3:04 PM"), res.EndTime.Format("3:04 PM")),
	}); err != nil {
		logger.Errorf("Failed to queue reservation notice %d: %v", res.ID, err)
	}
}

// Cancel always runs the policy with the requester role: equipment has no
// provider actor.
func (s *service) Cancel(ctx context.Context, reservationID int, reason string) (*Reservation, error) {
	existing, err := s.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	if existing.Status != StatusConfirmed {
		return nil, ErrNotCancellable
	}

	outcome := policy.Decide(existing.StartTime, s.now(), policy.RoleRequester)

	if err := s.repo.CancelReservation(ctx, reservationID, reason, outcome); err != nil {
		if err == ErrReservationTerminal {
			return nil, ErrNotCancellable
		}
		return nil, err
	}

	metrics.RecordCancellation("reservation", string(outcome))

	return s.repo.GetReservationByID(ctx, reservationID)
}

// Complete is an idempotent no-op on an already completed reservation.
func (s *service) Complete(ctx context.Context, reservationID int) (*Reservation, error) {
	existing, err := s.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	switch existing.Status {
	case StatusCompleted:
		return existing, nil
	case StatusCancelled:
		return nil, ErrNotCompletable
	}

	if err := s.repo.CompleteReservation(ctx, reservationID); err != nil {
		return nil, err
	}

	return s.repo.GetReservationByID(ctx, reservationID)
}

func (s *service) GetReservation(ctx context.Context, reservationID int) (*Reservation, error) {
	res, err := s.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

func (s *service) ListForEquipment(ctx context.Context, equipmentID int) ([]Reservation, error) {
	return s.repo.ListForEquipment(ctx, equipmentID)
}

func (s *service) ListForMember(ctx context.Context, memberID int) ([]Reservation, error) {
	return s.repo.ListForMember(ctx, memberID)
}
