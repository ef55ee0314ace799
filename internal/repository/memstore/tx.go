package memstore

import (
	"context"
	"fmt"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
)

// memTx writes straight into the store and records an undo step per write.
type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) GetSlotForUpdate(_ context.Context, id string) (*domain.TimeSlot, error) {
	slot, ok := t.s.slots[id]
	if !ok {
		return nil, fmt.Errorf("lock slot %s: %w", id, repository.ErrNotFound)
	}
	return &slot, nil
}

func (t *memTx) UpdateSlotBookedCount(_ context.Context, id string, bookedCount int) error {
	prev, ok := t.s.slots[id]
	if !ok {
		return fmt.Errorf("update slot %s: %w", id, repository.ErrNotFound)
	}
	if bookedCount < 0 || bookedCount > prev.TotalCapacity {
		return fmt.Errorf("update slot %s: booked count %d outside [0, %d]", id, bookedCount, prev.TotalCapacity)
	}

	next := prev
	next.BookedCount = bookedCount
	next.UpdatedAt = t.s.now()
	t.s.slots[id] = next
	t.undo = append(t.undo, func() { t.s.slots[id] = prev })
	return nil
}

func (t *memTx) GetPromoForUpdate(_ context.Context, code, _ string) (*domain.PromoCode, error) {
	p, err := t.s.promo(code)
	if err != nil {
		return nil, fmt.Errorf("lock promo: %w", err)
	}
	return p, nil
}

func (t *memTx) SavePromoUsage(_ context.Context, code, email string, total int, usage domain.UserUsage) error {
	code, email = domain.NormalizeCode(code), domain.NormalizeEmail(email)
	prev, ok := t.s.promos[code]
	if !ok {
		return fmt.Errorf("update promo %s usage: %w", code, repository.ErrNotFound)
	}
	if limit := prev.UsageLimit.Total; limit != nil && total > *limit {
		return fmt.Errorf("update promo %s usage: total %d exceeds limit %d", code, total, *limit)
	}

	next := clonePromo(prev)
	next.CurrentUsage.Total = total
	next.CurrentUsage.ByUser[email] = usage
	next.UpdatedAt = t.s.now()
	t.s.promos[code] = next
	t.undo = append(t.undo, func() { t.s.promos[code] = prev })
	return nil
}

func (t *memTx) ReferenceExists(_ context.Context, reference string) (bool, error) {
	_, ok := t.s.bookings[reference]
	return ok, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *domain.Booking) error {
	if _, ok := t.s.bookings[b.Reference]; ok {
		return fmt.Errorf("insert booking %s: %w", b.Reference, repository.ErrDuplicateReference)
	}
	now := t.s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	b.Customer.Email = domain.NormalizeEmail(b.Customer.Email)

	ref := b.Reference
	t.s.bookings[ref] = *b
	t.undo = append(t.undo, func() { delete(t.s.bookings, ref) })
	return nil
}

func (t *memTx) GetBookingForUpdate(_ context.Context, reference string) (*domain.Booking, error) {
	b, ok := t.s.bookings[reference]
	if !ok {
		return nil, fmt.Errorf("lock booking %s: %w", reference, repository.ErrNotFound)
	}
	return &b, nil
}

func (t *memTx) UpdateBookingStatus(_ context.Context, b *domain.Booking) error {
	prev, ok := t.s.bookings[b.Reference]
	if !ok {
		return fmt.Errorf("update booking %s: %w", b.Reference, repository.ErrNotFound)
	}

	next := prev
	next.Status = b.Status
	if b.Cancellation != nil {
		details := *b.Cancellation
		next.Cancellation = &details
	}
	next.UpdatedAt = t.s.now()
	b.UpdatedAt = next.UpdatedAt
	t.s.bookings[b.Reference] = next
	t.undo = append(t.undo, func() { t.s.bookings[prev.Reference] = prev })
	return nil
}

var _ repository.Tx = (*memTx)(nil)
