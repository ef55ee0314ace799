package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlot_DerivedFields(t *testing.T) {
	start := time.Date(2026, 11, 20, 9, 0, 0, 0, time.UTC)
	slot := NewTimeSlot("s-1", "e-1", start, start.Add(2*time.Hour), 10)

	assert.Equal(t, start.Add(-24*time.Hour), slot.CancellationDeadline)
	assert.Equal(t, 10, slot.AvailableSpots())
	assert.False(t, slot.IsFullyBooked())

	slot.BookedCount = 10
	assert.Equal(t, 0, slot.AvailableSpots())
	assert.True(t, slot.IsFullyBooked())

	assert.False(t, slot.DeadlinePassed(start.Add(-25*time.Hour)))
	assert.True(t, slot.DeadlinePassed(start.Add(-23*time.Hour)))
}

func TestTimeSlot_UnitPrice(t *testing.T) {
	exp := &Experience{PriceCents: 5000}
	slot := &TimeSlot{}
	assert.Equal(t, int64(5000), slot.UnitPrice(exp))

	price := int64(4500)
	slot.PriceCents = &price
	assert.Equal(t, int64(4500), slot.UnitPrice(exp))

	special := int64(3900)
	slot.SpecialPriceCents = &special
	assert.Equal(t, int64(3900), slot.UnitPrice(exp))
}

func TestTimeWindow_Contains(t *testing.T) {
	day := TimeWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}
	assert.True(t, day.Contains(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.False(t, day.Contains(time.Date(2026, 1, 1, 17, 0, 0, 0, time.UTC)))

	night := TimeWindow{StartMinute: 22 * 60, EndMinute: 2 * 60}
	assert.True(t, night.Contains(time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)))
	assert.True(t, night.Contains(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)))
	assert.False(t, night.Contains(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestPromoCode_UserCount(t *testing.T) {
	p := &PromoCode{}
	assert.Equal(t, 0, p.UserCount("a@b.io"))

	p.CurrentUsage.ByUser = map[string]UserUsage{"a@b.io": {Count: 2}}
	assert.Equal(t, 2, p.UserCount("  A@B.io "))
	assert.Equal(t, "SUMMER10", NormalizeCode(" summer10 "))
}

func TestBooking_Cancellable(t *testing.T) {
	for status, want := range map[BookingStatus]bool{
		BookingStatusPending:   true,
		BookingStatusConfirmed: true,
		BookingStatusCancelled: false,
		BookingStatusCompleted: false,
		BookingStatusRefunded:  false,
	} {
		b := Booking{Status: status}
		assert.Equal(t, want, b.Cancellable(), status)
		assert.True(t, status.Valid())
	}
	assert.False(t, BookingStatus("lost").Valid())
}
