package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
	"github.com/shopspring/decimal"
)

var reservationCols = []string{
	"id", "lot_id", "driver_id", "vehicle_plate", "start_time", "end_time",
	"price_per_hour", "total_price", "extra_charges", "amount_due", "status", "payment_status",
	"is_inside", "gate_entry_time", "gate_exit_time", "version", "created_at", "updated_at",
}

func newMock(t *testing.T) (*repository.ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewReservationRepo(db), mock
}

func TestReservationRepoGetByID(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows(reservationCols).AddRow(
		5, 1, 7, "ABC123", at(10, 0), at(11, 0),
		"10.00", "10.00", "0.00", "10.00", "confirmed", "paid",
		false, nil, nil, 3, at(9, 0), at(9, 30),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lot_id")).WithArgs(5).WillReturnRows(rows)

	r, err := repo.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if r.Status != model.StatusConfirmed || r.Version != 3 || !r.TotalPrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("scanned %+v", r)
	}
	if r.GateEntryAt != nil {
		t.Fatalf("entry time should be nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReservationRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lot_id")).WithArgs(9).WillReturnRows(sqlmock.NewRows(reservationCols))

	if _, err := repo.GetByID(context.Background(), 9); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReservationRepoCountOverlapping(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reservations WHERE lot_id = ? AND status IN (?, ?, ?) AND start_time < ? AND end_time > ? AND id <> ?")).
		WithArgs(1, "pending", "confirmed", "active", at(11, 0), at(10, 0), 0).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	n, err := repo.CountOverlapping(context.Background(), repository.OverlapQuery{
		LotID:    1,
		Window:   model.Window{Start: at(10, 0), End: at(11, 0)},
		Statuses: model.OccupyingStatuses,
	})
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReservationRepoCreate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).WillReturnResult(sqlmock.NewResult(42, 1))

	r := &model.Reservation{LotID: 1, DriverID: 7, Window: model.Window{Start: at(10, 0), End: at(11, 0)}, Status: model.StatusPendingPayment}
	if err := repo.Create(context.Background(), r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID != 42 || r.Version != 1 {
		t.Fatalf("id=%d version=%d", r.ID, r.Version)
	}
}

func TestReservationRepoUpdate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET")).
		WithArgs("active", "paid", true, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 5, "confirmed", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := &model.Reservation{ID: 5, Status: model.StatusActive, PaymentStatus: model.PaymentPaid, IsInside: true, Version: 2}
	if err := repo.Update(context.Background(), r, model.StatusConfirmed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if r.Version != 3 {
		t.Fatalf("version = %d, want 3", r.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReservationRepoUpdateStale(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM reservations WHERE id = ?")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	r := &model.Reservation{ID: 5, Status: model.StatusExpired, Version: 2}
	if err := repo.Update(context.Background(), r, model.StatusConfirmed); !errors.Is(err, repository.ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	if r.Version != 2 {
		t.Fatalf("version bumped on stale write")
	}
}

func TestReservationRepoUpdateMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM reservations WHERE id = ?")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	r := &model.Reservation{ID: 5, Version: 2}
	if err := repo.Update(context.Background(), r, model.StatusConfirmed); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLotRepoGetLot(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := repository.NewLotRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id")).WithArgs(1).WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "name", "total_slots", "price_per_hour", "auto_approval", "created_at", "updated_at"}).
			AddRow(1, 3, "Central", 4, "12.50", true, at(8, 0), at(8, 0)),
	)
	l, err := repo.GetLot(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetLot: %v", err)
	}
	if l.TotalSlots != 4 || !l.AutoApproval || !l.PricePerHour.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("lot = %+v", l)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id")).WithArgs(2).WillReturnRows(
		sqlmock.NewRows([]string{"id"}),
	)
	if _, err := repo.GetLot(context.Background(), 2); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLotRepoListLots(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := repository.NewLotRepo(db)

	cols := []string{"id", "owner_id", "name", "total_slots", "price_per_hour", "auto_approval", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM lots ORDER BY id")).WillReturnRows(
		sqlmock.NewRows(cols).
			AddRow(1, 3, "Central", 4, "12.50", true, at(8, 0), at(8, 0)).
			AddRow(2, 3, "Harbour", 1, "6.00", false, at(8, 0), at(8, 0)),
	)
	lots, err := repo.ListLots(context.Background())
	if err != nil {
		t.Fatalf("ListLots: %v", err)
	}
	if len(lots) != 2 || lots[1].Name != "Harbour" || lots[1].AutoApproval {
		t.Fatalf("lots = %+v", lots)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
