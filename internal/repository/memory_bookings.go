package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sunolegal/internal/domain"
	"sunolegal/internal/models"
)

// MemoryBookingRepository is the default booking table. Each booking has its
// own lock, so mutations of one id are serialized while other ids proceed.
type MemoryBookingRepository struct {
	mu    sync.RWMutex
	byID  map[string]*bookingEntry
	order []string
}

type bookingEntry struct {
	mu      sync.Mutex
	booking models.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{byID: make(map[string]*bookingEntry)}
}

func (r *MemoryBookingRepository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		return fmt.Errorf("%w: booking id is required", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[booking.ID]; exists {
		return fmt.Errorf("booking %s already exists", booking.ID)
	}
	r.byID[booking.ID] = &bookingEntry{booking: *booking}
	r.order = append(r.order, booking.ID)
	return nil
}

func (r *MemoryBookingRepository) entry(id string) (*bookingEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

func (r *MemoryBookingRepository) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	e.mu.Lock()
	b := e.booking
	e.mu.Unlock()
	return &b, nil
}

// UpdateBooking runs fn on a working copy under the booking's lock and stores it
// only when fn reports a change.
func (r *MemoryBookingRepository) UpdateBooking(ctx context.Context, id string, fn domain.MutateFunc) (*models.Booking, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, domain.ErrBookingNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.booking
	changed, err := fn(&work)
	if err != nil {
		return nil, err
	}
	if changed {
		work.Version = e.booking.Version + 1
		work.UpdatedAt = time.Now()
		e.booking = work
	}
	out := e.booking
	return &out, nil
}

func (r *MemoryBookingRepository) ListBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, error) {
	r.mu.RLock()
	entries := make([]*bookingEntry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.byID[id])
	}
	r.mu.RUnlock()

	out := make([]*models.Booking, 0)
	for _, e := range entries {
		e.mu.Lock()
		b := e.booking
		e.mu.Unlock()
		if q.Matches(&b) {
			out = append(out, &b)
		}
	}
	return out, nil
}
