package repository

import (
	"strings"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// OverlapQuery selects reservations on a lot whose window overlaps Window
// under the half-open rule storedStart < Window.End AND storedEnd > Window.Start.
// ExcludeID, when non-zero, leaves one reservation out (the one being
// confirmed, typically).
type OverlapQuery struct {
	LotID     uint64
	Window    model.Window
	Statuses  []model.Status
	ExcludeID uint64
}

// matches reports whether r satisfies the query.
func (q OverlapQuery) matches(r model.Reservation) bool {
	if r.LotID != q.LotID || (q.ExcludeID != 0 && r.ID == q.ExcludeID) {
		return false
	}
	return hasStatus(q.Statuses, r.Status) && r.Window.Overlaps(q.Window)
}

// ReservationFilter narrows List.  Zero fields are ignored.
type ReservationFilter struct {
	LotID    uint64
	DriverID uint64
	Statuses []model.Status
}

func (f ReservationFilter) matches(r model.Reservation) bool {
	if f.LotID != 0 && r.LotID != f.LotID {
		return false
	}
	if f.DriverID != 0 && r.DriverID != f.DriverID {
		return false
	}
	return len(f.Statuses) == 0 || hasStatus(f.Statuses, r.Status)
}

// EntryQuery selects reservations a vehicle may enter on: matching plate,
// one of Statuses, start at or before StartBy and end after EndAfter.
type EntryQuery struct {
	LotID    uint64
	Plate    string
	Statuses []model.Status
	StartBy  time.Time
	EndAfter time.Time
}

func (q EntryQuery) matches(r model.Reservation) bool {
	return r.LotID == q.LotID && r.VehiclePlate == q.Plate && hasStatus(q.Statuses, r.Status) &&
		!r.Window.Start.After(q.StartBy) && r.Window.End.After(q.EndAfter)
}

// ExitQuery selects reservations whose vehicle is inside the lot.
type ExitQuery struct {
	LotID    uint64
	Plate    string
	Statuses []model.Status
}

func (q ExitQuery) matches(r model.Reservation) bool {
	return r.IsInside && r.LotID == q.LotID && r.VehiclePlate == q.Plate && hasStatus(q.Statuses, r.Status)
}

func hasStatus(set []model.Status, s model.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// inClause returns "(?, ?, ?)" for n placeholders and the status args.
func inClause(statuses []model.Status) (string, []interface{}) {
	marks := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		marks[i] = "?"
		args[i] = string(s)
	}
	return "(" + strings.Join(marks, ", ") + ")", args
}
