package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// LotRepo provides persistence for parking lots.  Lots are created by
// owners and read on every reservation decision to capture capacity,
// rate and the auto-approval flag.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo returns a new LotRepo bound to the given database.
func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

// CreateLot inserts a lot and populates its generated ID.
func (r *LotRepo) CreateLot(ctx context.Context, l *model.Lot) error {
	const q = `INSERT INTO lots (owner_id, name, total_slots, price_per_hour, auto_approval, created_at, updated_at)
			   VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, l.OwnerID, l.Name, l.TotalSlots, l.PricePerHour, l.AutoApproval, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// GetLot returns the lot with the given ID or ErrNotFound.
func (r *LotRepo) GetLot(ctx context.Context, id uint64) (*model.Lot, error) {
	const q = `SELECT id, owner_id, name, total_slots, price_per_hour, auto_approval, created_at, updated_at
			   FROM lots WHERE id = ?`
	var l model.Lot
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.OwnerID, &l.Name, &l.TotalSlots, &l.PricePerHour, &l.AutoApproval, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLots returns every lot ordered by ID.
func (r *LotRepo) ListLots(ctx context.Context) ([]model.Lot, error) {
	const q = `SELECT id, owner_id, name, total_slots, price_per_hour, auto_approval, created_at, updated_at
			   FROM lots ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lots []model.Lot
	for rows.Next() {
		var l model.Lot
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &l.TotalSlots, &l.PricePerHour, &l.AutoApproval, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}
