package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// MemoryStore keeps lots and reservations in process memory.  It has the
// same semantics as the MySQL repositories, conditional updates included,
// and backs STORE=memory deployments and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	lots         map[uint64]model.Lot
	reservations map[uint64]model.Reservation
	nextLot      uint64
	nextRes      uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lots:         make(map[uint64]model.Lot),
		reservations: make(map[uint64]model.Reservation),
	}
}

// CreateLot stores l and assigns its ID.
func (m *MemoryStore) CreateLot(_ context.Context, l *model.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLot++
	l.ID = m.nextLot
	m.lots[l.ID] = *l
	return nil
}

// GetLot returns the lot or ErrNotFound.
func (m *MemoryStore) GetLot(_ context.Context, id uint64) (*model.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

// ListLots returns every lot ordered by ID.
func (m *MemoryStore) ListLots(_ context.Context) ([]model.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lots := make([]model.Lot, 0, len(m.lots))
	for _, l := range m.lots {
		lots = append(lots, l)
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].ID < lots[j].ID })
	return lots, nil
}

// Create stores res with version 1 and assigns its ID.
func (m *MemoryStore) Create(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRes++
	res.ID = m.nextRes
	res.Version = 1
	m.reservations[res.ID] = clone(*res)
	return nil
}

// GetByID returns a copy of the reservation or ErrNotFound.
func (m *MemoryStore) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	r = clone(r)
	return &r, nil
}

// CountOverlapping counts reservations matching q.
func (m *MemoryStore) CountOverlapping(_ context.Context, q OverlapQuery) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.reservations {
		if q.matches(r) {
			n++
		}
	}
	return n, nil
}

// ListOverlapping returns reservations matching q ordered by start time.
func (m *MemoryStore) ListOverlapping(_ context.Context, q OverlapQuery) ([]model.Reservation, error) {
	out := m.collect(q.matches)
	sortByStart(out, false)
	return out, nil
}

// List returns reservations matching f, most recent window first.
func (m *MemoryStore) List(_ context.Context, f ReservationFilter) ([]model.Reservation, error) {
	out := m.collect(f.matches)
	sortByStart(out, true)
	return out, nil
}

// EntryCandidates returns entry matches, earliest start first.
func (m *MemoryStore) EntryCandidates(_ context.Context, q EntryQuery) ([]model.Reservation, error) {
	out := m.collect(q.matches)
	sortByStart(out, false)
	return out, nil
}

// InsideByPlate returns inside matches, most recently started first.
func (m *MemoryStore) InsideByPlate(_ context.Context, q ExitQuery) ([]model.Reservation, error) {
	out := m.collect(q.matches)
	sortByStart(out, true)
	return out, nil
}

// Update replaces the stored reservation when its status and version
// still match, then bumps res.Version.
func (m *MemoryStore) Update(_ context.Context, res *model.Reservation, expect model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reservations[res.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != expect || cur.Version != res.Version {
		return ErrStale
	}
	next := clone(*res)
	// identity, window and price snapshot are immutable
	next.LotID, next.DriverID, next.VehiclePlate = cur.LotID, cur.DriverID, cur.VehiclePlate
	next.Window, next.PricePerHour, next.TotalPrice, next.CreatedAt = cur.Window, cur.PricePerHour, cur.TotalPrice, cur.CreatedAt
	next.Version = cur.Version + 1
	m.reservations[res.ID] = next
	res.Version = next.Version
	return nil
}

func (m *MemoryStore) collect(keep func(model.Reservation) bool) []model.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Reservation{}
	for _, r := range m.reservations {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	return out
}

func sortByStart(rs []model.Reservation, desc bool) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if !a.Window.Start.Equal(b.Window.Start) {
			if desc {
				return a.Window.Start.After(b.Window.Start)
			}
			return a.Window.Start.Before(b.Window.Start)
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

// clone copies r including the pointed-to gate times.
func clone(r model.Reservation) model.Reservation {
	if r.GateEntryAt != nil {
		t := *r.GateEntryAt
		r.GateEntryAt = &t
	}
	if r.GateExitAt != nil {
		t := *r.GateExitAt
		r.GateExitAt = &t
	}
	return r
}
