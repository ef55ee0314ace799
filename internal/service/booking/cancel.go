package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/validation"
	"go.uber.org/zap"
)

const (
	defaultCancelReason = "cancelled by customer"
	defaultCancelledBy  = "customer"
)

type CancelBookingInput struct {
	Reference   string `json:"bookingReference" validate:"required"`
	Reason      string `json:"reason" validate:"omitempty,max=500"`
	CancelledBy string `json:"cancelledBy" validate:"omitempty,max=64"`
}

// CancelBooking releases the booking's spots and marks it cancelled in one
// transaction. Promo usage stays counted.
func (s *BookingService) CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.Booking, error) {
	input.Reference = strings.TrimSpace(input.Reference)
	input.Reason = strings.TrimSpace(input.Reason)
	input.CancelledBy = strings.TrimSpace(input.CancelledBy)
	if err := validation.Struct(s.validate, input); err != nil {
		return nil, err
	}
	if input.Reason == "" {
		input.Reason = defaultCancelReason
	}
	if input.CancelledBy == "" {
		input.CancelledBy = defaultCancelledBy
	}

	var cancelled *domain.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := s.cancelInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, s.classify("cancel booking", err, zap.String("booking_reference", input.Reference))
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_reference", cancelled.Reference),
		zap.String("slot_id", cancelled.TimeSlotID),
		zap.Int("released", cancelled.NumberOfGuests))
	s.publish(ctx, kafka.EventBookingCancelled, cancelled)
	return cancelled, nil
}

func (s *BookingService) cancelInTx(ctx context.Context, tx repository.Tx, input CancelBookingInput) (*domain.Booking, error) {
	b, err := tx.GetBookingForUpdate(ctx, input.Reference)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("booking %s not found", input.Reference))
	}
	if err != nil {
		return nil, fmt.Errorf("lock booking %s: %w", input.Reference, err)
	}

	switch b.Status {
	case domain.BookingStatusCancelled:
		return nil, apperror.New(apperror.CodeAlreadyCancelled, fmt.Sprintf("booking %s is already cancelled", b.Reference))
	case domain.BookingStatusCompleted:
		return nil, apperror.New(apperror.CodeAlreadyCompleted, fmt.Sprintf("booking %s is already completed", b.Reference))
	}
	if !b.Cancellable() {
		return nil, apperror.New(apperror.CodeNotCancellable, fmt.Sprintf("booking %s cannot be cancelled in status %s", b.Reference, b.Status))
	}

	slot, err := s.inventory.Lock(ctx, tx, b.TimeSlotID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if slot.DeadlinePassed(now) {
		return nil, apperror.New(apperror.CodeDeadlinePassed,
			fmt.Sprintf("cancellation deadline for booking %s passed at %s", b.Reference, slot.CancellationDeadline.Format(time.RFC3339)))
	}

	if err := s.inventory.Release(ctx, tx, slot.ID, b.NumberOfGuests); err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatusCancelled
	b.Cancellation = &domain.CancellationDetails{
		Reason:       input.Reason,
		CancelledBy:  input.CancelledBy,
		CancelledAt:  now,
		RefundAmount: b.Pricing.FinalAmount,
	}
	if err := tx.UpdateBookingStatus(ctx, b); err != nil {
		return nil, fmt.Errorf("update booking %s: %w", b.Reference, err)
	}
	return b, nil
}
