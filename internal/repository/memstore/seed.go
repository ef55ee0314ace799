package memstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML document used to preload the in-memory catalog.
type Seed struct {
	Experiences []SeedExperience `yaml:"experiences"`
	Slots       []SeedSlot       `yaml:"slots"`
	Promos      []SeedPromo      `yaml:"promos"`
}

type SeedExperience struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Category   string `yaml:"category"`
	PriceCents int64  `yaml:"price_cents"`
	Currency   string `yaml:"currency"`
	Capacity   int    `yaml:"capacity"`
	Inactive   bool   `yaml:"inactive"`
}

type SeedSlot struct {
	ID                string    `yaml:"id"`
	ExperienceID      string    `yaml:"experience_id"`
	StartsAt          time.Time `yaml:"starts_at"`
	DurationMinutes   int       `yaml:"duration_minutes"`
	Capacity          int       `yaml:"capacity"`
	PriceCents        *int64    `yaml:"price_cents"`
	SpecialPriceCents *int64    `yaml:"special_price_cents"`
	Disabled          bool      `yaml:"disabled"`
}

type SeedPromo struct {
	Code                string    `yaml:"code"`
	Description         string    `yaml:"description"`
	Type                string    `yaml:"type"`
	Value               string    `yaml:"value"`
	MinimumOrderValue   int64     `yaml:"minimum_order_value"`
	MaximumDiscount     *int64    `yaml:"maximum_discount"`
	TotalLimit          *int      `yaml:"total_limit"`
	PerUserLimit        int       `yaml:"per_user_limit"`
	ValidFrom           time.Time `yaml:"valid_from"`
	ValidUntil          time.Time `yaml:"valid_until"`
	Inactive            bool      `yaml:"inactive"`
	Categories          []string  `yaml:"categories"`
	Experiences         []string  `yaml:"experiences"`
	ExcludedExperiences []string  `yaml:"excluded_experiences"`
	Days                []string  `yaml:"days"`
	TimeFrom            string    `yaml:"time_from"`
	TimeTo              string    `yaml:"time_to"`
}

// LoadSeed reads a seed file and puts its records into s.
func (s *Store) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	return s.Apply(seed)
}

func (s *Store) Apply(seed Seed) error {
	for _, e := range seed.Experiences {
		currency := e.Currency
		if currency == "" {
			currency = "USD"
		}
		s.PutExperience(domain.Experience{
			ID: e.ID, Title: e.Title, Category: e.Category, PriceCents: e.PriceCents,
			Currency: currency, DefaultCapacity: e.Capacity, Active: !e.Inactive,
		})
	}

	for _, sl := range seed.Slots {
		capacity := sl.Capacity
		if capacity == 0 {
			if e, err := s.GetExperience(context.Background(), sl.ExperienceID); err == nil {
				capacity = e.DefaultCapacity
			}
		}
		if capacity <= 0 {
			return fmt.Errorf("slot %s: capacity must be positive", sl.ID)
		}
		slot := domain.NewTimeSlot(sl.ID, sl.ExperienceID, sl.StartsAt.UTC(),
			sl.StartsAt.UTC().Add(time.Duration(sl.DurationMinutes)*time.Minute), capacity)
		slot.PriceCents, slot.SpecialPriceCents = sl.PriceCents, sl.SpecialPriceCents
		slot.Available = !sl.Disabled
		s.PutSlot(*slot)
	}

	for _, sp := range seed.Promos {
		p, err := sp.toDomain()
		if err != nil {
			return fmt.Errorf("promo %s: %w", sp.Code, err)
		}
		s.PutPromo(p)
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func (sp SeedPromo) toDomain() (domain.PromoCode, error) {
	value, err := decimal.NewFromString(sp.Value)
	if err != nil {
		return domain.PromoCode{}, fmt.Errorf("value: %w", err)
	}
	p := domain.PromoCode{
		Code:                  sp.Code,
		Description:           sp.Description,
		DiscountType:          domain.DiscountType(sp.Type),
		DiscountValue:         value,
		MinimumOrderValue:     sp.MinimumOrderValue,
		MaximumDiscountAmount: sp.MaximumDiscount,
		UsageLimit:            domain.UsageLimit{Total: sp.TotalLimit, PerUser: sp.PerUserLimit},
		ValidFrom:             sp.ValidFrom.UTC(),
		ValidUntil:            sp.ValidUntil.UTC(),
		Active:                !sp.Inactive,
		AllowedCategories:     sp.Categories,
		AllowedExperiences:    sp.Experiences,
		ExcludedExperiences:   sp.ExcludedExperiences,
	}
	for _, d := range sp.Days {
		wd, ok := weekdays[strings.ToLower(d)[:min(3, len(d))]]
		if !ok {
			return domain.PromoCode{}, fmt.Errorf("unknown weekday %q", d)
		}
		p.DaysOfWeek = append(p.DaysOfWeek, wd)
	}
	if sp.TimeFrom != "" || sp.TimeTo != "" {
		from, err := parseClock(sp.TimeFrom)
		if err != nil {
			return domain.PromoCode{}, err
		}
		to, err := parseClock(sp.TimeTo)
		if err != nil {
			return domain.PromoCode{}, err
		}
		p.TimeOfDay = &domain.TimeWindow{StartMinute: from, EndMinute: to}
	}
	return p, nil
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("time of day %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
