package domain

import "time"

// CancellationWindow is how long before the slot start the cancellation
// deadline falls.
const CancellationWindow = 24 * time.Hour

// TimeSlot is a bookable inventory unit. BookedCount is only mutated by the
// slot inventory and is kept within [0, TotalCapacity].
type TimeSlot struct {
	ID                   string
	ExperienceID         string
	StartsAt             time.Time
	EndsAt               time.Time
	TotalCapacity        int
	BookedCount          int
	PriceCents           *int64
	SpecialPriceCents    *int64
	Available            bool
	CancellationDeadline time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewTimeSlot returns an enabled slot with the cancellation deadline derived
// from its start time.
func NewTimeSlot(id, experienceID string, startsAt, endsAt time.Time, capacity int) *TimeSlot {
	return &TimeSlot{
		ID:                   id,
		ExperienceID:         experienceID,
		StartsAt:             startsAt,
		EndsAt:               endsAt,
		TotalCapacity:        capacity,
		Available:            true,
		CancellationDeadline: startsAt.Add(-CancellationWindow),
	}
}

func (s *TimeSlot) AvailableSpots() int {
	spots := s.TotalCapacity - s.BookedCount
	if spots < 0 {
		return 0
	}
	return spots
}

func (s *TimeSlot) IsFullyBooked() bool {
	return s.AvailableSpots() == 0
}

// DeadlinePassed reports whether now is past the slot's cancellation deadline.
func (s *TimeSlot) DeadlinePassed(now time.Time) bool {
	return now.After(s.CancellationDeadline)
}

// UnitPrice resolves the per-guest price: special price, then slot price,
// then the experience base price.
func (s *TimeSlot) UnitPrice(exp *Experience) int64 {
	switch {
	case s.SpecialPriceCents != nil:
		return *s.SpecialPriceCents
	case s.PriceCents != nil:
		return *s.PriceCents
	default:
		return exp.PriceCents
	}
}
