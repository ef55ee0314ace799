// Package promo validates and redeems discount codes.
//
// Validation collects every failing rule rather than stopping at the first.
// Redemption runs inside the caller's transaction with the promo row locked,
// so usage counters only move when the surrounding booking commits.
package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/Domenick1991/tripbooking/internal/clock"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome is the result of Validate. Reasons is empty when Valid.
type Outcome struct {
	Valid   bool
	Reasons []string
}

// Err converts a failed outcome into a PromoInvalid error.
func (o Outcome) Err() error {
	if o.Valid {
		return nil
	}
	return apperror.PromoInvalid(o.Reasons...)
}

type Ledger struct {
	rules    []Rule
	clock    clock.Clock
	location *time.Location
	logger   *zap.Logger
}

type Option func(*Ledger)

func WithRules(rules ...Rule) Option {
	return func(l *Ledger) { l.rules = rules }
}

// WithLocation sets the zone used for day-of-week and time-of-day rules.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.location = loc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLedger(c clock.Clock, opts ...Option) *Ledger {
	if c == nil {
		c = clock.System{}
	}
	l := &Ledger{
		rules:    DefaultRules,
		clock:    c,
		location: time.UTC,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now is the ledger's clock reading in its configured zone.
func (l *Ledger) Now() time.Time {
	return l.clock.Now().In(l.location)
}

// Validate runs every rule against p. A zero in.Now means the ledger clock.
func (l *Ledger) Validate(p *domain.PromoCode, in ValidationInput) Outcome {
	if in.Now.IsZero() {
		in.Now = l.Now()
	} else {
		in.Now = in.Now.In(l.location)
	}
	in.Email = domain.NormalizeEmail(in.Email)

	reasons := make([]string, 0)
	for _, rule := range l.rules {
		if reason := rule(p, in); reason != "" {
			reasons = append(reasons, reason)
		}
	}
	return Outcome{Valid: len(reasons) == 0, Reasons: reasons}
}

// CalculateDiscount returns the discount for orderValue in minor units.
// Percentage values are rounded half away from zero, then capped by the
// code's maximum and by the order value itself.
func CalculateDiscount(p *domain.PromoCode, orderValue int64) int64 {
	if orderValue <= 0 {
		return 0
	}
	var amount int64
	switch p.DiscountType {
	case domain.DiscountPercentage:
		amount = decimal.NewFromInt(orderValue).
			Mul(p.DiscountValue).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case domain.DiscountFixed:
		amount = p.DiscountValue.Round(0).IntPart()
	}

	if p.MaximumDiscountAmount != nil && amount > *p.MaximumDiscountAmount {
		amount = *p.MaximumDiscountAmount
	}
	if amount > orderValue {
		amount = orderValue
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// Lock loads code for update inside tx, with usage for email populated.
func (l *Ledger) Lock(ctx context.Context, tx repository.Tx, code, email string) (*domain.PromoCode, error) {
	p, err := tx.GetPromoForUpdate(ctx, domain.NormalizeCode(code), domain.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("promo code %s not found", domain.NormalizeCode(code)))
	}
	if err != nil {
		return nil, fmt.Errorf("lock promo %s: %w", domain.NormalizeCode(code), err)
	}
	return p, nil
}

// Redeem counts one use of code by email. The caps are checked again under
// the row lock; a lost race surfaces as PromoExhausted.
func (l *Ledger) Redeem(ctx context.Context, tx repository.Tx, code, email string) error {
	code, email = domain.NormalizeCode(code), domain.NormalizeEmail(email)
	p, err := l.Lock(ctx, tx, code, email)
	if err != nil {
		return err
	}

	if limit := p.UsageLimit.Total; limit != nil && p.CurrentUsage.Total >= *limit {
		l.logger.Info("promo code exhausted", zap.String("promo_code", code))
		return apperror.New(apperror.CodePromoExhausted, fmt.Sprintf("promo code %s has no redemptions left", code))
	}
	used := p.UserCount(email)
	if p.UsageLimit.PerUser > 0 && used >= p.UsageLimit.PerUser {
		return apperror.PromoInvalid(fmt.Sprintf("per-user limit of %d use(s) reached for this promo code", p.UsageLimit.PerUser))
	}

	usage := domain.UserUsage{Count: used + 1, LastUsed: l.clock.Now()}
	if err := tx.SavePromoUsage(ctx, code, email, p.CurrentUsage.Total+1, usage); err != nil {
		return fmt.Errorf("redeem promo %s: %w", code, err)
	}
	return nil
}
