// Package memstore is an in-process implementation of repository.Store.
//
// Transactions are serialisable: WithinTx holds the store's write lock for
// the whole callback and undoes every write if the callback fails. The
// callback must only use the Tx it is given; calling the Store's own read
// methods from inside it deadlocks.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
)

type Store struct {
	mu          sync.RWMutex
	experiences map[string]domain.Experience
	slots       map[string]domain.TimeSlot
	promos      map[string]domain.PromoCode
	bookings    map[string]domain.Booking
	now         func() time.Time
}

func New() *Store {
	return &Store{
		experiences: map[string]domain.Experience{},
		slots:       map[string]domain.TimeSlot{},
		promos:      map[string]domain.PromoCode{},
		bookings:    map[string]domain.Booking{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets the timestamp source for CreatedAt/UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) PutExperience(e domain.Experience) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiences[e.ID] = e
}

func (s *Store) PutSlot(slot domain.TimeSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.ID] = slot
}

func (s *Store) PutPromo(p domain.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Code = domain.NormalizeCode(p.Code)
	s.promos[p.Code] = clonePromo(p)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) GetExperience(_ context.Context, id string) (*domain.Experience, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.experiences[id]
	if !ok {
		return nil, fmt.Errorf("get experience %s: %w", id, repository.ErrNotFound)
	}
	return &e, nil
}

func (s *Store) GetSlot(_ context.Context, id string) (*domain.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, fmt.Errorf("get slot %s: %w", id, repository.ErrNotFound)
	}
	return &slot, nil
}

func (s *Store) ListSlots(_ context.Context, experienceID string) ([]domain.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots := make([]domain.TimeSlot, 0)
	for _, slot := range s.slots {
		if slot.ExperienceID == experienceID {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartsAt.Before(slots[j].StartsAt) })
	return slots, nil
}

func (s *Store) GetPromo(_ context.Context, code, email string) (*domain.PromoCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.promo(code)
}

func (s *Store) promo(code string) (*domain.PromoCode, error) {
	code = domain.NormalizeCode(code)
	p, ok := s.promos[code]
	if !ok {
		return nil, fmt.Errorf("get promo %s: %w", code, repository.ErrNotFound)
	}
	p = clonePromo(p)
	return &p, nil
}

func (s *Store) GetBookingByReference(_ context.Context, reference string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[reference]
	if !ok {
		return nil, fmt.Errorf("get booking %s: %w", reference, repository.ErrNotFound)
	}
	return &b, nil
}

func (s *Store) ListBookingsByEmail(_ context.Context, filter repository.BookingFilter) ([]domain.Booking, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email := domain.NormalizeEmail(filter.Email)
	matched := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if domain.NormalizeEmail(b.Customer.Email) != email {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Reference < matched[j].Reference
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total || start < 0 {
		return []domain.Booking{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *Store) CompleteBookingsEndedBefore(_ context.Context, t time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := make([]domain.Booking, 0)
	for ref, b := range s.bookings {
		if b.Status != domain.BookingStatusConfirmed || b.SlotEndsAt.After(t) {
			continue
		}
		b.Status = domain.BookingStatusCompleted
		b.UpdatedAt = s.now()
		s.bookings[ref] = b
		completed = append(completed, b)
	}
	sort.Slice(completed, func(i, j int) bool { return completed[i].Reference < completed[j].Reference })
	return completed, nil
}

func clonePromo(p domain.PromoCode) domain.PromoCode {
	byUser := make(map[string]domain.UserUsage, len(p.CurrentUsage.ByUser))
	for k, v := range p.CurrentUsage.ByUser {
		byUser[domain.NormalizeEmail(k)] = v
	}
	p.CurrentUsage.ByUser = byUser
	return p
}

var _ repository.Store = (*Store)(nil)
