package promo

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

// ValidationInput is the context a code is checked against. ExperienceID and
// Category may be empty, in which case the experience-scoped rules pass.
type ValidationInput struct {
	Email        string
	OrderValue   int64
	ExperienceID string
	Category     string
	Now          time.Time
}

// Rule returns a failure reason, or "" when the code passes.
type Rule func(p *domain.PromoCode, in ValidationInput) string

// DefaultRules is evaluated in full, in this order.
var DefaultRules = []Rule{
	ruleActive,
	ruleValidityWindow,
	ruleGlobalLimit,
	ruleMinimumOrder,
	rulePerUserLimit,
	ruleCategory,
	ruleExperience,
	ruleDayOfWeek,
	ruleTimeOfDay,
}

func ruleActive(p *domain.PromoCode, _ ValidationInput) string {
	if !p.Active {
		return "promo code is not active"
	}
	return ""
}

func ruleValidityWindow(p *domain.PromoCode, in ValidationInput) string {
	if !p.ValidFrom.IsZero() && in.Now.Before(p.ValidFrom) {
		return fmt.Sprintf("promo code is not valid before %s", p.ValidFrom.Format(time.RFC3339))
	}
	if !p.ValidUntil.IsZero() && in.Now.After(p.ValidUntil) {
		return fmt.Sprintf("promo code expired at %s", p.ValidUntil.Format(time.RFC3339))
	}
	return ""
}

func ruleGlobalLimit(p *domain.PromoCode, _ ValidationInput) string {
	if limit := p.UsageLimit.Total; limit != nil && p.CurrentUsage.Total >= *limit {
		return "promo code usage limit has been reached"
	}
	return ""
}

func ruleMinimumOrder(p *domain.PromoCode, in ValidationInput) string {
	if in.OrderValue < p.MinimumOrderValue {
		return fmt.Sprintf("order value %d is below the minimum of %d", in.OrderValue, p.MinimumOrderValue)
	}
	return ""
}

func rulePerUserLimit(p *domain.PromoCode, in ValidationInput) string {
	if p.UsageLimit.PerUser > 0 && p.UserCount(in.Email) >= p.UsageLimit.PerUser {
		return fmt.Sprintf("per-user limit of %d use(s) reached for this promo code", p.UsageLimit.PerUser)
	}
	return ""
}

func ruleCategory(p *domain.PromoCode, in ValidationInput) string {
	if in.Category == "" || len(p.AllowedCategories) == 0 {
		return ""
	}
	if !slices.ContainsFunc(p.AllowedCategories, func(c string) bool { return strings.EqualFold(c, in.Category) }) {
		return fmt.Sprintf("promo code does not apply to category %q", in.Category)
	}
	return ""
}

func ruleExperience(p *domain.PromoCode, in ValidationInput) string {
	if in.ExperienceID == "" {
		return ""
	}
	if slices.Contains(p.ExcludedExperiences, in.ExperienceID) {
		return "promo code is excluded for this experience"
	}
	if len(p.AllowedExperiences) > 0 && !slices.Contains(p.AllowedExperiences, in.ExperienceID) {
		return "promo code does not apply to this experience"
	}
	return ""
}

func ruleDayOfWeek(p *domain.PromoCode, in ValidationInput) string {
	if len(p.DaysOfWeek) == 0 || slices.Contains(p.DaysOfWeek, in.Now.Weekday()) {
		return ""
	}
	return fmt.Sprintf("promo code is not valid on %s", in.Now.Weekday())
}

func ruleTimeOfDay(p *domain.PromoCode, in ValidationInput) string {
	if p.TimeOfDay == nil || p.TimeOfDay.Contains(in.Now) {
		return ""
	}
	w := p.TimeOfDay
	return fmt.Sprintf("promo code is only valid between %02d:%02d and %02d:%02d",
		w.StartMinute/60, w.StartMinute%60, w.EndMinute/60, w.EndMinute%60)
}
