package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const promoColumns = `code, description, discount_type, discount_value::text, minimum_order_value,
	maximum_discount_amount, usage_limit_total, usage_limit_per_user, usage_total,
	valid_from, valid_until, active, allowed_categories, allowed_experiences, excluded_experiences,
	days_of_week, time_from_minute, time_to_minute, created_at, updated_at`

func scanPromo(row pgx.Row) (*domain.PromoCode, error) {
	var (
		p                domain.PromoCode
		discountType     string
		discountValue    string
		days             []int32
		fromMin, toMin   *int32
		usageLimitTotal  *int32
		usageLimitByUser int32
		usageTotal       int32
	)
	if err := row.Scan(&p.Code, &p.Description, &discountType, &discountValue, &p.MinimumOrderValue,
		&p.MaximumDiscountAmount, &usageLimitTotal, &usageLimitByUser, &usageTotal,
		&p.ValidFrom, &p.ValidUntil, &p.Active, &p.AllowedCategories, &p.AllowedExperiences, &p.ExcludedExperiences,
		&days, &fromMin, &toMin, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	value, err := decimal.NewFromString(discountValue)
	if err != nil {
		return nil, fmt.Errorf("parse discount value %q: %w", discountValue, err)
	}
	p.DiscountType = domain.DiscountType(discountType)
	p.DiscountValue = value
	if usageLimitTotal != nil {
		total := int(*usageLimitTotal)
		p.UsageLimit.Total = &total
	}
	p.UsageLimit.PerUser = int(usageLimitByUser)
	p.CurrentUsage.Total = int(usageTotal)
	for _, d := range days {
		p.DaysOfWeek = append(p.DaysOfWeek, time.Weekday(d))
	}
	if fromMin != nil && toMin != nil {
		p.TimeOfDay = &domain.TimeWindow{StartMinute: int(*fromMin), EndMinute: int(*toMin)}
	}
	return &p, nil
}

func loadUserUsage(ctx context.Context, q querier, p *domain.PromoCode, email string) error {
	p.CurrentUsage.ByUser = map[string]domain.UserUsage{}
	if email == "" {
		return nil
	}

	var u domain.UserUsage
	err := q.QueryRow(ctx, `SELECT count, last_used_at FROM promo_usages WHERE code = $1 AND email = $2`, p.Code, email).
		Scan(&u.Count, &u.LastUsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load promo usage: %w", err)
	}
	p.CurrentUsage.ByUser[email] = u
	return nil
}

func (s *PGStore) GetPromo(ctx context.Context, code, email string) (*domain.PromoCode, error) {
	code, email = domain.NormalizeCode(code), domain.NormalizeEmail(email)
	p, err := scanPromo(s.db.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("get promo %s: %w", code, notFound(err))
	}
	if err := loadUserUsage(ctx, s.db, p, email); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *pgTx) GetPromoForUpdate(ctx context.Context, code, email string) (*domain.PromoCode, error) {
	code, email = domain.NormalizeCode(code), domain.NormalizeEmail(email)
	p, err := scanPromo(t.q.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1 FOR UPDATE`, code))
	if err != nil {
		return nil, fmt.Errorf("lock promo %s: %w", code, notFound(err))
	}
	// The promo row lock serialises every redemption of this code, so the
	// per-user row needs no lock of its own.
	if err := loadUserUsage(ctx, t.q, p, email); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *pgTx) SavePromoUsage(ctx context.Context, code, email string, total int, usage domain.UserUsage) error {
	code, email = domain.NormalizeCode(code), domain.NormalizeEmail(email)
	if _, err := t.q.Exec(ctx, `UPDATE promo_codes SET usage_total = $1, updated_at = now() WHERE code = $2`, total, code); err != nil {
		return fmt.Errorf("update promo %s usage: %w", code, err)
	}
	if _, err := t.q.Exec(ctx, `INSERT INTO promo_usages (code, email, count, last_used_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code, email) DO UPDATE SET count = EXCLUDED.count, last_used_at = EXCLUDED.last_used_at`,
		code, email, usage.Count, usage.LastUsed); err != nil {
		return fmt.Errorf("upsert promo %s user usage: %w", code, err)
	}
	return nil
}
