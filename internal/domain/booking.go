package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusRefunded  BookingStatus = "refunded"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusCompleted, BookingStatusRefunded:
		return true
	}
	return false
}

type Customer struct {
	Name  string
	Email string
	Phone string
	Notes string
}

// Pricing is frozen when the booking is created and never recomputed.
type Pricing struct {
	BasePrice      int64
	TotalAmount    int64
	DiscountAmount int64
	TaxAmount      int64
	FinalAmount    int64
	Currency       string
}

// AppliedPromo is a copy of the discount parameters at redemption time.
type AppliedPromo struct {
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	DiscountAmount int64
}

type CancellationDetails struct {
	Reason       string
	CancelledBy  string
	CancelledAt  time.Time
	RefundAmount int64
}

// Booking references its experience and slot by id only; everything else it
// needs for display is snapshotted at creation.
type Booking struct {
	ID              string
	Reference       string
	ExperienceID    string
	ExperienceTitle string
	TimeSlotID      string
	SlotStartsAt    time.Time
	SlotEndsAt      time.Time
	Customer        Customer
	NumberOfGuests  int
	Pricing         Pricing
	AppliedPromo    *AppliedPromo
	Status          BookingStatus
	Cancellation    *CancellationDetails
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Cancellable reports whether the status still allows cancellation.
func (b *Booking) Cancellable() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}
