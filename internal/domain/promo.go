package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// UsageLimit bounds redemptions. A nil Total is unlimited; PerUser 0 is
// unlimited.
type UsageLimit struct {
	Total   *int
	PerUser int
}

type UserUsage struct {
	Count    int
	LastUsed time.Time
}

// Usage holds the redemption counters. ByUser is keyed by normalized email;
// stores may populate only the entry of the user being checked.
type Usage struct {
	Total  int
	ByUser map[string]UserUsage
}

// TimeWindow restricts redemption to [StartMinute, EndMinute) minutes after
// local midnight. A window with EndMinute <= StartMinute wraps midnight.
type TimeWindow struct {
	StartMinute int
	EndMinute   int
}

func (w TimeWindow) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	if w.EndMinute > w.StartMinute {
		return m >= w.StartMinute && m < w.EndMinute
	}
	return m >= w.StartMinute || m < w.EndMinute
}

// PromoCode is a discount rule. DiscountValue is a percent for percentage
// codes and minor units for fixed codes.
type PromoCode struct {
	Code                  string
	Description           string
	DiscountType          DiscountType
	DiscountValue         decimal.Decimal
	MinimumOrderValue     int64
	MaximumDiscountAmount *int64
	UsageLimit            UsageLimit
	CurrentUsage          Usage
	ValidFrom             time.Time
	ValidUntil            time.Time
	Active                bool
	AllowedCategories     []string
	AllowedExperiences    []string
	ExcludedExperiences   []string
	DaysOfWeek            []time.Weekday
	TimeOfDay             *TimeWindow
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// UserCount returns how many times email has redeemed the code.
func (p *PromoCode) UserCount(email string) int {
	if p.CurrentUsage.ByUser == nil {
		return 0
	}
	return p.CurrentUsage.ByUser[NormalizeEmail(email)].Count
}

// NormalizeCode makes promo codes case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
