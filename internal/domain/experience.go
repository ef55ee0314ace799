package domain

import "time"

// Experience is a catalog entry. It is read-only for the booking core and
// referenced by id.
type Experience struct {
	ID              string
	Title           string
	Category        string
	PriceCents      int64
	Currency        string
	DefaultCapacity int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
