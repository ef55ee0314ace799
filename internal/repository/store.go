package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateReference is returned when a booking reference is already taken.
var ErrDuplicateReference = errors.New("booking reference already exists")

// Tx is the unit of work handed to WithinTx. Rows read "for update" stay
// locked until the transaction ends, so read-check-write sequences on slots,
// promo codes and bookings are atomic.
type Tx interface {
	GetSlotForUpdate(ctx context.Context, id string) (*domain.TimeSlot, error)
	UpdateSlotBookedCount(ctx context.Context, id string, bookedCount int) error

	// GetPromoForUpdate loads the code with CurrentUsage.ByUser populated at
	// least for email.
	GetPromoForUpdate(ctx context.Context, code, email string) (*domain.PromoCode, error)
	SavePromoUsage(ctx context.Context, code, email string, total int, usage domain.UserUsage) error

	ReferenceExists(ctx context.Context, reference string) (bool, error)
	InsertBooking(ctx context.Context, booking *domain.Booking) error
	GetBookingForUpdate(ctx context.Context, reference string) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, booking *domain.Booking) error
}

type CatalogRepository interface {
	GetExperience(ctx context.Context, id string) (*domain.Experience, error)
	GetSlot(ctx context.Context, id string) (*domain.TimeSlot, error)
	ListSlots(ctx context.Context, experienceID string) ([]domain.TimeSlot, error)
}

type PromoRepository interface {
	GetPromo(ctx context.Context, code, email string) (*domain.PromoCode, error)
}

type BookingFilter struct {
	Email    string
	Status   domain.BookingStatus
	Page     int
	PageSize int
}

type BookingRepository interface {
	GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListBookingsByEmail(ctx context.Context, filter BookingFilter) ([]domain.Booking, int, error)
	// CompleteBookingsEndedBefore moves confirmed bookings whose slot ended
	// at or before t to completed and returns them.
	CompleteBookingsEndedBefore(ctx context.Context, t time.Time) ([]domain.Booking, error)
}

// Store is the persistence boundary of the booking core.
type Store interface {
	CatalogRepository
	PromoRepository
	BookingRepository

	// WithinTx runs fn in one transaction. fn's error aborts and rolls back
	// everything fn wrote. fn may be re-run on transient storage conflicts,
	// so it must not have side effects outside tx.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
