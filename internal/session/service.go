package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"fitclub/internal/logger"
	"fitclub/internal/member"
	"fitclub/internal/membership"
	"fitclub/internal/metrics"
	"fitclub/internal/notify"
	"fitclub/internal/policy"
	"fitclub/internal/schedule"
	"fitclub/internal/trainer"
)

var (
	ErrTrainerNotFound    = errors.New("trainer not found")
	ErrNoActiveMembership = errors.New("no active membership")
	ErrInvalidDuration    = errors.New("duration must be positive")
	ErrCrossesMidnight    = errors.New("session must end on the same day")
	ErrInvalidStartTime   = errors.New("start time out of range")
	ErrInvalidSessionType = errors.New("unknown session type")
	ErrSlotConflict       = errors.New("time slot already booked")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrTerminalStatus     = errors.New("session status is terminal")
	ErrNotCancellable     = errors.New("session cannot be cancelled")
)

type Service interface {
	BookSession(ctx context.Context, trainerID, memberID int, sessionType Type, date time.Time, startMinute, durationMinutes int) (*Session, error)
	BookSessionPaid(ctx context.Context, trainerID, memberID int, sessionType Type, date time.Time, startMinute, durationMinutes int, paymentSessionID string) (*Session, error)
	UpdateStatus(ctx context.Context, sessionID int, newStatus Status) (*Session, error)
	Cancel(ctx context.Context, sessionID int, reason string, cancelledBy policy.Role) (*Session, error)
	GetByID(ctx context.Context, sessionID int) (*Session, error)
	ListForTrainer(ctx context.Context, trainerID int, date time.Time) ([]Session, error)
	ListForMember(ctx context.Context, memberID int) ([]Session, error)
}

type service struct {
	sessionRepo    Repository
	trainerRepo    trainer.Repository
	membershipRepo membership.Repository
	memberRepo     member.Repository
	notifier       notify.Dispatcher
	locks          *schedule.KeyedMutex
	now            func() time.Time
}

func NewService(
	sessionRepo Repository,
	trainerRepo trainer.Repository,
	membershipRepo membership.Repository,
	memberRepo member.Repository,
	notifier notify.Dispatcher,
	locks *schedule.KeyedMutex,
) Service {
	return &service{
		sessionRepo:    sessionRepo,
		trainerRepo:    trainerRepo,
		membershipRepo: membershipRepo,
		memberRepo:     memberRepo,
		notifier:       notifier,
		locks:          locks,
		now:            time.Now,
	}
}

func (s *service) BookSession(ctx context.Context, trainerID, memberID int, sessionType Type, date time.Time, startMinute, durationMinutes int) (*Session, error) {
	if _, err := s.membershipRepo.GetActiveForMember(ctx, memberID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoActiveMembership
		}
		return nil, err
	}

	return s.book(ctx, trainerID, memberID, sessionType, date, startMinute, durationMinutes, ModeIncluded, nil)
}

// BookSessionPaid trusts the caller's payment subsystem: the opaque payment
// session id is only used to de-duplicate, never validated here. Calling it
// again with the same id returns the original booking.
func (s *service) BookSessionPaid(ctx context.Context, trainerID, memberID int, sessionType Type, date time.Time, startMinute, durationMinutes int, paymentSessionID string) (*Session, error) {
	existing, err := s.sessionRepo.GetByPaymentSession(ctx, paymentSessionID)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	booked, err := s.book(ctx, trainerID, memberID, sessionType, date, startMinute, durationMinutes, ModePaid, &paymentSessionID)
	if err != nil {
		// A concurrent booking with the same payment session id may win the
		// insert race; the unique index rejects ours, so return theirs.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return s.sessionRepo.GetByPaymentSession(ctx, paymentSessionID)
		}
		return nil, err
	}
	return booked, nil
}

func (s *service) book(ctx context.Context, trainerID, memberID int, sessionType Type, date time.Time, startMinute, durationMinutes int, mode Mode, paymentSessionID *string) (*Session, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if startMinute < 0 || startMinute >= schedule.MinutesPerDay {
		return nil, ErrInvalidStartTime
	}
	if startMinute+durationMinutes > schedule.MinutesPerDay {
		return nil, ErrCrossesMidnight
	}
	if !ValidType(sessionType) {
		return nil, ErrInvalidSessionType
	}

	tr, err := s.trainerRepo.FindByID(ctx, trainerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	if !tr.Active {
		return nil, ErrTrainerNotFound
	}

	endMinute := startMinute + durationMinutes

	// The conflict check and insert must see a consistent view of the
	// trainer's day, so both happen under the per-(trainer, date) lock.
	lockKey := fmt.Sprintf("trainer:%d:%s", trainerID, date.Format("2006-01-02"))
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	existing, err := s.sessionRepo.ListActiveForTrainerDate(ctx, trainerID, date)
	if err != nil {
		return nil, err
	}

	intervals := make([]schedule.MinuteInterval, 0, len(existing))
	for _, e := range existing {
		intervals = append(intervals, schedule.MinuteInterval{Start: e.StartMinute, End: e.EndMinute})
	}

	if schedule.HasConflictMinutes(schedule.MinuteInterval{Start: startMinute, End: endMinute}, intervals) {
		metrics.RecordBookingConflict()
		return nil, ErrSlotConflict
	}

	created, err := s.sessionRepo.Create(ctx, &Session{
		TrainerID:        trainerID,
		MemberID:         memberID,
		Type:             sessionType,
		Date:             date,
		StartMinute:      startMinute,
		EndMinute:        endMinute,
		Status:           StatusConfirmed,
		Mode:             mode,
		PaymentSessionID: paymentSessionID,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionBooked(string(mode))
	s.notifyBooked(ctx, created, tr.Name)

	return created, nil
}

// notifyBooked is best-effort: a notification failure never unwinds a booking.
func (s *service) notifyBooked(ctx context.Context, booked *Session, trainerName string) {
	m, err := s.memberRepo.FindByID(ctx, booked.MemberID)
	if err != nil {
		logger.Errorf("Booking %d confirmed but member %d lookup failed: %v", booked.ID, booked.MemberID, err)
		return
	}

	if err := s.notifier.Send(ctx, notify.Event{
		Kind:        notify.KindBookingConfirmed,
		RecipientID: m.ID,
		Email:       m.Email,
		Name:        m.Name,
		Title:       "Session Confirmed",
		Message: fmt.Sprintf("Hi %s,\n\nYour %s session with %s on %s at %s is confirmed.\n\n- FitClub Team",
			m.Name, booked.Type, trainerName, booked.Date.Format("Jan 2, 2006"), booked.StartsAt().Format("3:04 PM")),
	}); err != nil {
		logger.Errorf("Failed to queue confirmation for booking %d: %v", booked.ID, err)
	}
}

func (s *service) UpdateStatus(ctx context.Context, sessionID int, newStatus Status) (*Session, error) {
	switch newStatus {
	case StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
	default:
		return nil, ErrInvalidStatus
	}

	prev, err := s.sessionRepo.UpdateStatus(ctx, sessionID, newStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		if err == ErrSessionTerminal {
			return nil, ErrTerminalStatus
		}
		return nil, err
	}

	updated, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// prev cannot be completed here (the guard refuses terminal rows), so
	// this increments the trainer's lifetime counter exactly once per session.
	if newStatus == StatusCompleted && prev != StatusCompleted {
		if err := s.trainerRepo.MarkSessionCompleted(ctx, updated.TrainerID); err != nil {
			logger.Errorf("Session %d completed but trainer %d counter update failed: %v", sessionID, updated.TrainerID, err)
		}
	}

	return updated, nil
}

func (s *service) Cancel(ctx context.Context, sessionID int, reason string, cancelledBy policy.Role) (*Session, error) {
	existing, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if existing.Status.IsTerminal() {
		return nil, ErrNotCancellable
	}

	outcome := policy.Decide(existing.StartsAt(), s.now(), cancelledBy)

	if err := s.sessionRepo.Cancel(ctx, sessionID, reason, outcome); err != nil {
		if err == ErrSessionTerminal {
			return nil, ErrNotCancellable
		}
		return nil, err
	}

	metrics.RecordCancellation("session", string(outcome))

	cancelled, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.notifyCancelled(ctx, cancelled)

	return cancelled, nil
}

func (s *service) notifyCancelled(ctx context.Context, cancelled *Session) {
	m, err := s.memberRepo.FindByID(ctx, cancelled.MemberID)
	if err != nil {
		logger.Errorf("Cancellation of session %d: member %d lookup failed: %v", cancelled.ID, cancelled.MemberID, err)
		return
	}

	outcome := policy.OutcomePending
	if cancelled.RefundOutcome != nil {
		outcome = *cancelled.RefundOutcome
	}

	if err := s.notifier.Send(ctx, notify.Event{
		Kind:        notify.KindBookingCancelled,
		RecipientID: m.ID,
		Email:       m.Email,
		Name:        m.Name,
		Title:       "Session Cancelled",
		Message: fmt.Sprintf("Hi %s,\n\nYour session on %s at %s has been cancelled.\nRefund status: %s\n\n- FitClub Team",
			m.Name, cancelled.Date.Format("Jan 2, 2006"), cancelled.StartsAt().Format("3:04 PM"), outcome),
	}); err != nil {
		logger.Errorf("Failed to queue cancellation notice for session %d: %v", cancelled.ID, err)
	}
}

func (s *service) GetByID(ctx context.Context, sessionID int) (*Session, error) {
	found, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return found, nil
}

func (s *service) ListForTrainer(ctx context.Context, trainerID int, date time.Time) ([]Session, error) {
	return s.sessionRepo.ListForTrainerDate(ctx, trainerID, date)
}

func (s *service) ListForMember(ctx context.Context, memberID int) ([]Session, error) {
	return s.sessionRepo.ListForMember(ctx, memberID)
}
