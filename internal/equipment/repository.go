package equipment

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"fitclub/internal/policy"
)

var ErrReservationTerminal = errors.New("reservation already cancelled or completed")

const reservationColumns = `id, equipment_id, member_id, start_time, end_time, status, notes,
		cancellation_reason, refund_outcome, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetItemByID(ctx context.Context, id int) (*Item, error) {
	query := `
		SELECT id, name, category, total_units, active, created_at
		FROM equipment_items
		WHERE id = $1
	`

	var item Item
	err := r.db.GetContext(ctx, &item, query, id)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *repository) CreateReservation(ctx context.Context, res *Reservation) (*Reservation, error) {
	query := `
		INSERT INTO equipment_reservations (equipment_id, member_id, start_time, end_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + reservationColumns

	var created Reservation
	err := r.db.GetContext(ctx, &created, query,
		res.EquipmentID, res.MemberID, res.StartTime, res.EndTime, res.Status, res.Notes)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetReservationByID(ctx context.Context, id int) (*Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM equipment_reservations WHERE id = $1`

	var res Reservation
	err := r.db.GetContext(ctx, &res, query, id)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (r *repository) ListOverlapping(ctx context.Context, equipmentID int, start, end time.Time) ([]Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM equipment_reservations
		WHERE equipment_id = $1 AND status = 'confirmed'
		  AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`

	var reservations []Reservation
	err := r.db.SelectContext(ctx, &reservations, query, equipmentID, start, end)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) ListForEquipment(ctx context.Context, equipmentID int) ([]Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM equipment_reservations
		WHERE equipment_id = $1
		ORDER BY start_time DESC
	`

	var reservations []Reservation
	err := r.db.SelectContext(ctx, &reservations, query, equipmentID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) ListForMember(ctx context.Context, memberID int) ([]Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM equipment_reservations
		WHERE member_id = $1
		ORDER BY start_time DESC
	`

	var reservations []Reservation
	err := r.db.SelectContext(ctx, &reservations, query, memberID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) CancelReservation(ctx context.Context, id int, reason string, outcome policy.Outcome) error {
	query := `
		UPDATE equipment_reservations
		SET status = 'cancelled', cancellation_reason = $2, refund_outcome = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
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
		return ErrReservationTerminal
	}

	return nil
}

func (r *repository) CompleteReservation(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE equipment_reservations
		SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`, id)
	return err
}
