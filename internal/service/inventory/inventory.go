// Package inventory guards slot capacity. All mutations go through a
// repository.Tx so the slot row stays locked until the surrounding booking
// transaction commits or rolls back.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/Domenick1991/tripbooking/internal/clock"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"go.uber.org/zap"
)

type Inventory struct {
	clock  clock.Clock
	logger *zap.Logger
}

func New(c clock.Clock, logger *zap.Logger) *Inventory {
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inventory{clock: c, logger: logger}
}

// Reserve takes guests spots on the slot. The deadline check uses the
// slot's cancellation deadline, which is also the booking cutoff.
func (i *Inventory) Reserve(ctx context.Context, tx repository.Tx, slotID string, guests int) error {
	if guests <= 0 {
		return apperror.Validation("numberOfGuests must be positive")
	}
	slot, err := i.Lock(ctx, tx, slotID)
	if err != nil {
		return err
	}

	if !slot.Available {
		return apperror.New(apperror.CodeSlotUnavailable, fmt.Sprintf("slot %s is not available", slotID))
	}
	if slot.DeadlinePassed(i.clock.Now()) {
		return apperror.New(apperror.CodeDeadlinePassed,
			fmt.Sprintf("booking deadline for slot %s passed at %s", slotID, slot.CancellationDeadline.Format(time.RFC3339)))
	}
	if spots := slot.AvailableSpots(); spots < guests {
		i.logger.Info("slot capacity exhausted",
			zap.String("slot_id", slotID), zap.Int("requested", guests), zap.Int("available", spots))
		return apperror.New(apperror.CodeInsufficientCapacity,
			fmt.Sprintf("slot %s has %d spots left, %d requested", slotID, spots, guests))
	}

	if err := tx.UpdateSlotBookedCount(ctx, slotID, slot.BookedCount+guests); err != nil {
		return fmt.Errorf("reserve slot %s: %w", slotID, err)
	}
	return nil
}

// Release gives guests spots back to the slot.
func (i *Inventory) Release(ctx context.Context, tx repository.Tx, slotID string, guests int) error {
	if guests <= 0 {
		return apperror.Validation("guests to release must be positive")
	}
	slot, err := i.Lock(ctx, tx, slotID)
	if err != nil {
		return err
	}
	if guests > slot.BookedCount {
		return apperror.New(apperror.CodeOverRelease,
			fmt.Sprintf("cannot release %d guests from slot %s, only %d booked", guests, slotID, slot.BookedCount))
	}
	if err := tx.UpdateSlotBookedCount(ctx, slotID, slot.BookedCount-guests); err != nil {
		return fmt.Errorf("release slot %s: %w", slotID, err)
	}
	return nil
}

// Lock reads the slot inside tx and keeps its row locked until tx ends.
func (i *Inventory) Lock(ctx context.Context, tx repository.Tx, slotID string) (*domain.TimeSlot, error) {
	slot, err := tx.GetSlotForUpdate(ctx, slotID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("slot %s not found", slotID))
	}
	if err != nil {
		return nil, fmt.Errorf("lock slot %s: %w", slotID, err)
	}
	return slot, nil
}

// Availability is the read view of a slot's capacity.
type Availability struct {
	SlotID         string
	TotalCapacity  int
	BookedCount    int
	AvailableSpots int
	FullyBooked    bool
	Bookable       bool
}

// AvailabilityOf derives the view from committed slot state at now.
func AvailabilityOf(slot *domain.TimeSlot, now time.Time) Availability {
	return Availability{
		SlotID:         slot.ID,
		TotalCapacity:  slot.TotalCapacity,
		BookedCount:    slot.BookedCount,
		AvailableSpots: slot.AvailableSpots(),
		FullyBooked:    slot.IsFullyBooked(),
		Bookable:       slot.Available && !slot.IsFullyBooked() && !slot.DeadlinePassed(now),
	}
}
