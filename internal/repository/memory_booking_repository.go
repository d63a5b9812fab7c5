package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/festival-booking/internal/model"
)

// MemoryBookingRepo is an in-process booking store used by tests and by
// STORE_BACKEND=memory.  Values are copied on the way in and out so callers
// never share state with the store.
type MemoryBookingRepo struct {
	mu      sync.RWMutex
	byID    map[string]*model.Booking
	byToken map[string]string
}

// NewMemoryBookingRepo returns an empty store.
func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{
		byID:    make(map[string]*model.Booking),
		byToken: make(map[string]string),
	}
}

func (r *MemoryBookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[b.ID]; ok {
		return fmt.Errorf("booking %s: %w", b.ID, ErrConflict)
	}
	if _, ok := r.byToken[b.TokenHash]; ok && b.TokenHash != "" {
		return fmt.Errorf("token hash: %w", ErrConflict)
	}
	cp := b.Clone()
	cp.ConfirmationToken = ""
	r.byID[b.ID] = cp
	if b.TokenHash != "" {
		r.byToken[b.TokenHash] = b.ID
	}
	return nil
}

func (r *MemoryBookingRepo) Get(_ context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *MemoryBookingRepo) GetByTokenHash(_ context.Context, hash string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byToken[hash]
	if !ok {
		return nil, model.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

// Update only applies to pending bookings, like BookingRepo.Update.
func (r *MemoryBookingRepo) Update(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[b.ID]
	if !ok || cur.Status != model.StatusPending {
		return model.ErrNotFound
	}
	cp := b.Clone()
	cp.ConfirmationToken = ""
	cp.TokenHash = cur.TokenHash
	r.byID[b.ID] = cp
	return nil
}

func (r *MemoryBookingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(id, false)
}

func (r *MemoryBookingRepo) DeletePending(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(id, true)
}

func (r *MemoryBookingRepo) deleteLocked(id string, pendingOnly bool) error {
	b, ok := r.byID[id]
	if !ok || (pendingOnly && b.Status != model.StatusPending) {
		return model.ErrNotFound
	}
	delete(r.byToken, b.TokenHash)
	delete(r.byID, id)
	return nil
}

func (r *MemoryBookingRepo) List(_ context.Context) ([]*model.Booking, error) {
	r.mu.RLock()
	out := make([]*model.Booking, 0, len(r.byID))
	for _, b := range r.byID {
		out = append(out, b.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryBookingRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	r.mu.RLock()
	var out []*model.Booking
	for _, b := range r.byID {
		if b.Status == model.StatusPending && b.TokenExpiresAt.Before(now) {
			out = append(out, b.Clone())
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TokenExpiresAt.Before(out[j].TokenExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
