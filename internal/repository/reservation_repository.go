package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations on MySQL.  All
// timestamps are stored in UTC (the DSN sets loc=UTC).  Writes after
// creation go through Update, which is conditional on the status and
// version the caller read so concurrent writers cannot overwrite each
// other silently.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// reservationColumns is the column list scanned by scanReservation.
const reservationColumns = `id, lot_id, driver_id, vehicle_plate, start_time, end_time,
	price_per_hour, total_price, extra_charges, amount_due, status, payment_status,
	is_inside, gate_entry_time, gate_exit_time, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var r model.Reservation
	var status, payment string
	var entry, exit sql.NullTime
	err := s.Scan(
		&r.ID, &r.LotID, &r.DriverID, &r.VehiclePlate, &r.Window.Start, &r.Window.End,
		&r.PricePerHour, &r.TotalPrice, &r.ExtraCharges, &r.AmountDue, &status, &payment,
		&r.IsInside, &entry, &exit, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}
	r.Status = model.Status(status)
	r.PaymentStatus = model.PaymentStatus(payment)
	if entry.Valid {
		t := entry.Time
		r.GateEntryAt = &t
	}
	if exit.Valid {
		t := exit.Time
		r.GateExitAt = &t
	}
	return r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Create inserts a new reservation with version 1 and populates its ID.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (lot_id, driver_id, vehicle_plate, start_time, end_time,
				   price_per_hour, total_price, extra_charges, amount_due, status, payment_status,
				   is_inside, version, created_at, updated_at)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res.Version = 1
	result, err := r.db.ExecContext(ctx, q,
		res.LotID, res.DriverID, res.VehiclePlate, res.Window.Start, res.Window.End,
		res.PricePerHour, res.TotalPrice, res.ExtraCharges, res.AmountDue,
		string(res.Status), string(res.PaymentStatus), res.IsInside, res.Version,
		res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns a reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CountOverlapping counts reservations matching q.
func (r *ReservationRepo) CountOverlapping(ctx context.Context, q OverlapQuery) (int, error) {
	if len(q.Statuses) == 0 {
		return 0, nil
	}
	in, args := inClause(q.Statuses)
	stmt := `SELECT COUNT(*) FROM reservations
			 WHERE lot_id = ? AND status IN ` + in + ` AND start_time < ? AND end_time > ? AND id <> ?`
	all := append([]interface{}{q.LotID}, args...)
	all = append(all, q.Window.End, q.Window.Start, q.ExcludeID)
	var n int
	if err := r.db.QueryRowContext(ctx, stmt, all...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListOverlapping returns reservations matching q ordered by start time.
func (r *ReservationRepo) ListOverlapping(ctx context.Context, q OverlapQuery) ([]model.Reservation, error) {
	if len(q.Statuses) == 0 {
		return []model.Reservation{}, nil
	}
	in, args := inClause(q.Statuses)
	stmt := `SELECT ` + reservationColumns + ` FROM reservations
			 WHERE lot_id = ? AND status IN ` + in + ` AND start_time < ? AND end_time > ? AND id <> ?
			 ORDER BY start_time, id`
	all := append([]interface{}{q.LotID}, args...)
	all = append(all, q.Window.End, q.Window.Start, q.ExcludeID)
	return r.query(ctx, stmt, all...)
}

// List returns reservations matching f, most recent window first.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	stmt := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1 = 1`
	args := []interface{}{}
	if f.LotID != 0 {
		stmt += ` AND lot_id = ?`
		args = append(args, f.LotID)
	}
	if f.DriverID != 0 {
		stmt += ` AND driver_id = ?`
		args = append(args, f.DriverID)
	}
	if len(f.Statuses) > 0 {
		in, sargs := inClause(f.Statuses)
		stmt += ` AND status IN ` + in
		args = append(args, sargs...)
	}
	stmt += ` ORDER BY start_time DESC, id DESC`
	return r.query(ctx, stmt, args...)
}

// EntryCandidates returns reservations a vehicle may enter on, earliest
// start first.
func (r *ReservationRepo) EntryCandidates(ctx context.Context, q EntryQuery) ([]model.Reservation, error) {
	in, sargs := inClause(q.Statuses)
	stmt := `SELECT ` + reservationColumns + ` FROM reservations
			 WHERE lot_id = ? AND vehicle_plate = ? AND status IN ` + in + ` AND start_time <= ? AND end_time > ?
			 ORDER BY start_time ASC, id ASC`
	args := append([]interface{}{q.LotID, q.Plate}, sargs...)
	args = append(args, q.StartBy, q.EndAfter)
	return r.query(ctx, stmt, args...)
}

// InsideByPlate returns reservations whose vehicle is inside, most
// recently started first.
func (r *ReservationRepo) InsideByPlate(ctx context.Context, q ExitQuery) ([]model.Reservation, error) {
	in, sargs := inClause(q.Statuses)
	stmt := `SELECT ` + reservationColumns + ` FROM reservations
			 WHERE lot_id = ? AND vehicle_plate = ? AND is_inside = 1 AND status IN ` + in + `
			 ORDER BY start_time DESC, id DESC`
	args := append([]interface{}{q.LotID, q.Plate}, sargs...)
	return r.query(ctx, stmt, args...)
}

// Update writes every mutable field of res if the stored row still has
// res.Version and the expected status.  On success res.Version is bumped.
// A lost race returns ErrStale; a missing row returns ErrNotFound.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation, expect model.Status) error {
	const q = `UPDATE reservations SET
				   status = ?, payment_status = ?, is_inside = ?, gate_entry_time = ?, gate_exit_time = ?,
				   extra_charges = ?, amount_due = ?, version = version + 1, updated_at = ?
			   WHERE id = ? AND status = ? AND version = ?`
	result, err := r.db.ExecContext(ctx, q,
		string(res.Status), string(res.PaymentStatus), res.IsInside, nullTime(res.GateEntryAt), nullTime(res.GateExitAt),
		res.ExtraCharges, res.AmountDue, res.UpdatedAt,
		res.ID, string(expect), res.Version,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, res.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrStale
	}
	res.Version++
	return nil
}
