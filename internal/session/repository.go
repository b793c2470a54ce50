package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"fitclub/internal/policy"
)

// ErrSessionTerminal is returned by guarded updates when the row is already
// cancelled or completed.
var ErrSessionTerminal = errors.New("session already cancelled or completed")

const sessionColumns = `id, trainer_id, member_id, session_type, session_date, start_minute, end_minute,
		status, mode, payment_session_id, cancellation_reason, refund_outcome, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Session) (*Session, error) {
	query := `
		INSERT INTO sessions (trainer_id, member_id, session_type, session_date, start_minute, end_minute, status, mode, payment_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + sessionColumns

	var created Session
	err := r.db.GetContext(ctx, &created, query,
		s.TrainerID, s.MemberID, s.Type, s.Date, s.StartMinute, s.EndMinute, s.Status, s.Mode, s.PaymentSessionID)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	var s Session
	err := r.db.GetContext(ctx, &s, query, id)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *repository) GetByPaymentSession(ctx context.Context, paymentSessionID string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE payment_session_id = $1`

	var s Session
	err := r.db.GetContext(ctx, &s, query, paymentSessionID)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *repository) ListActiveForTrainerDate(ctx context.Context, trainerID int, date time.Time) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE trainer_id = $1 AND session_date = $2 AND status IN ('pending', 'confirmed')
		ORDER BY start_minute
	`

	var sessions []Session
	err := r.db.SelectContext(ctx, &sessions, query, trainerID, date)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *repository) ListForTrainerDate(ctx context.Context, trainerID int, date time.Time) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE trainer_id = $1 AND session_date = $2
		ORDER BY start_minute
	`

	var sessions []Session
	err := r.db.SelectContext(ctx, &sessions, query, trainerID, date)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *repository) ListForMember(ctx context.Context, memberID int) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE member_id = $1
		ORDER BY session_date DESC, start_minute DESC
	`

	var sessions []Session
	err := r.db.SelectContext(ctx, &sessions, query, memberID)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int, newStatus Status) (Status, error) {
	// The self-join locks the row and hands back the status it had before the
	// flip, so a transition to completed can be attributed exactly once.
	query := `
		UPDATE sessions s
		SET status = $2, updated_at = NOW()
		FROM (SELECT id, status AS prev_status FROM sessions WHERE id = $1 FOR UPDATE) old
		WHERE s.id = old.id AND old.prev_status NOT IN ('cancelled', 'completed')
		RETURNING old.prev_status
	`

	var prev Status
	err := r.db.GetContext(ctx, &prev, query, id, newStatus)
	if err == sql.ErrNoRows {
		// zero rows: either the session is gone or it is terminal
		var exists bool
		if checkErr := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, id); checkErr != nil {
			return "", checkErr
		}
		if exists {
			return "", ErrSessionTerminal
		}
		return "", sql.ErrNoRows
	}
	if err != nil {
		return "", err
	}

	return prev, nil
}

func (r *repository) Cancel(ctx context.Context, id int, reason string, outcome policy.Outcome) error {
	query := `
		UPDATE sessions
		SET status = 'cancelled', cancellation_reason = $2, refund_outcome = $3, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('cancelled', 'completed')
	`

	result, err := r.db.ExecContext(ctx, query, id, reason, outcome)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrSessionTerminal
	}

	return nil
}
