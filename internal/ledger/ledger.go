// Package ledger records which seats are held by confirmed bookings, keyed by
// showtime.
//
// A ledger is a plain set store: it does not know about layouts, VIP seats
// or bookings.  Reserve and Release are idempotent so a retried call never
// corrupts the set.  Callers that need read-modify-write consistency must
// serialize on the showtime themselves (see package lock).
package ledger

import (
	"context"
	"sync"

	"github.com/iliyamo/festival-booking/internal/model"
)

// Ledger is implemented by the memory, Redis and MySQL stores.
type Ledger interface {
	// Occupied returns the seats held for showtimeID.  An unknown showtime
	// yields an empty set.
	Occupied(ctx context.Context, showtimeID string) (model.SeatSet, error)
	// Reserve adds seats to the showtime's set.
	Reserve(ctx context.Context, showtimeID string, seats []string) error
	// Release removes seats from the showtime's set.
	Release(ctx context.Context, showtimeID string, seats []string) error
}

// Memory is an in-process Ledger.
type Memory struct {
	mu    sync.RWMutex
	seats map[string]model.SeatSet
}

// NewMemory returns an empty in-process ledger.
func NewMemory() *Memory {
	return &Memory{seats: make(map[string]model.SeatSet)}
}

func (m *Memory) Occupied(_ context.Context, showtimeID string) (model.SeatSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := model.SeatSet{}
	for seat := range m.seats[showtimeID] {
		out.Add(seat)
	}
	return out, nil
}

func (m *Memory) Reserve(_ context.Context, showtimeID string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.seats[showtimeID]
	if !ok {
		set = model.SeatSet{}
		m.seats[showtimeID] = set
	}
	set.Add(seats...)
	return nil
}

func (m *Memory) Release(_ context.Context, showtimeID string, seats []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.seats[showtimeID]
	if !ok {
		return nil
	}
	set.Remove(seats...)
	if len(set) == 0 {
		delete(m.seats, showtimeID)
	}
	return nil
}
