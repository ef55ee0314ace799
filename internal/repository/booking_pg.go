package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const bookingColumns = `id, reference, experience_id, experience_title, time_slot_id, slot_starts_at, slot_ends_at,
	customer_name, customer_email, customer_phone, customer_notes, number_of_guests,
	base_price, total_amount, discount_amount, tax_amount, final_amount, currency,
	promo_code, promo_discount_type, promo_discount_value::text, promo_discount_amount,
	status, cancel_reason, cancelled_by, cancelled_at, refund_amount, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b            domain.Booking
		status       string
		promoCode    *string
		promoType    *string
		promoValue   *string
		promoAmount  *int64
		cancelReason *string
		cancelledBy  *string
		cancelledAt  *time.Time
		refundAmount *int64
	)
	if err := row.Scan(&b.ID, &b.Reference, &b.ExperienceID, &b.ExperienceTitle, &b.TimeSlotID, &b.SlotStartsAt, &b.SlotEndsAt,
		&b.Customer.Name, &b.Customer.Email, &b.Customer.Phone, &b.Customer.Notes, &b.NumberOfGuests,
		&b.Pricing.BasePrice, &b.Pricing.TotalAmount, &b.Pricing.DiscountAmount, &b.Pricing.TaxAmount, &b.Pricing.FinalAmount, &b.Pricing.Currency,
		&promoCode, &promoType, &promoValue, &promoAmount,
		&status, &cancelReason, &cancelledBy, &cancelledAt, &refundAmount, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatus(status)

	if promoCode != nil {
		applied := &domain.AppliedPromo{Code: *promoCode}
		if promoType != nil {
			applied.DiscountType = domain.DiscountType(*promoType)
		}
		if promoValue != nil {
			value, err := decimal.NewFromString(*promoValue)
			if err != nil {
				return nil, fmt.Errorf("parse promo value %q: %w", *promoValue, err)
			}
			applied.DiscountValue = value
		}
		if promoAmount != nil {
			applied.DiscountAmount = *promoAmount
		}
		b.AppliedPromo = applied
	}

	if cancelledAt != nil {
		details := &domain.CancellationDetails{CancelledAt: *cancelledAt}
		if cancelReason != nil {
			details.Reason = *cancelReason
		}
		if cancelledBy != nil {
			details.CancelledBy = *cancelledBy
		}
		if refundAmount != nil {
			details.RefundAmount = *refundAmount
		}
		b.Cancellation = details
	}
	return &b, nil
}

func (s *PGStore) GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = $1`, reference))
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", reference, notFound(err))
	}
	return b, nil
}

func (s *PGStore) ListBookingsByEmail(ctx context.Context, filter BookingFilter) ([]domain.Booking, int, error) {
	email := domain.NormalizeEmail(filter.Email)
	var status *string
	if filter.Status != "" {
		st := string(filter.Status)
		status = &st
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM bookings
		WHERE customer_email = $1 AND ($2::text IS NULL OR status = $2)`, email, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	rows, err := s.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE customer_email = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, reference
		LIMIT $3 OFFSET $4`, email, status, filter.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (s *PGStore) CompleteBookingsEndedBefore(ctx context.Context, t time.Time) ([]domain.Booking, error) {
	rows, err := s.db.Query(ctx, `UPDATE bookings SET status = $1, updated_at = now()
		WHERE status = $2 AND slot_ends_at <= $3
		RETURNING `+bookingColumns, string(domain.BookingStatusCompleted), string(domain.BookingStatusConfirmed), t)
	if err != nil {
		return nil, fmt.Errorf("complete bookings: %w", err)
	}
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (t *pgTx) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	if err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE reference = $1)`, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reference: %w", err)
	}
	return exists, nil
}

func (t *pgTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	var (
		promoCode, promoType, promoValue *string
		promoAmount                      *int64
	)
	if p := b.AppliedPromo; p != nil {
		code, typ, value := p.Code, string(p.DiscountType), p.DiscountValue.String()
		promoCode, promoType, promoValue = &code, &typ, &value
		promoAmount = &p.DiscountAmount
	}

	err := t.q.QueryRow(ctx, `INSERT INTO bookings (id, reference, experience_id, experience_title, time_slot_id,
		slot_starts_at, slot_ends_at, customer_name, customer_email, customer_phone, customer_notes, number_of_guests,
		base_price, total_amount, discount_amount, tax_amount, final_amount, currency,
		promo_code, promo_discount_type, promo_discount_value, promo_discount_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21::numeric, $22, $23)
		RETURNING created_at, updated_at`,
		b.ID, b.Reference, b.ExperienceID, b.ExperienceTitle, b.TimeSlotID,
		b.SlotStartsAt, b.SlotEndsAt, b.Customer.Name, domain.NormalizeEmail(b.Customer.Email), b.Customer.Phone, b.Customer.Notes, b.NumberOfGuests,
		b.Pricing.BasePrice, b.Pricing.TotalAmount, b.Pricing.DiscountAmount, b.Pricing.TaxAmount, b.Pricing.FinalAmount, b.Pricing.Currency,
		promoCode, promoType, promoValue, promoAmount, string(b.Status)).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert booking %s: %w", b.Reference, ErrDuplicateReference)
		}
		return fmt.Errorf("insert booking %s: %w", b.Reference, err)
	}
	return nil
}

func (t *pgTx) GetBookingForUpdate(ctx context.Context, reference string) (*domain.Booking, error) {
	b, err := scanBooking(t.q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = $1 FOR UPDATE`, reference))
	if err != nil {
		return nil, fmt.Errorf("lock booking %s: %w", reference, notFound(err))
	}
	return b, nil
}

func (t *pgTx) UpdateBookingStatus(ctx context.Context, b *domain.Booking) error {
	var (
		reason, by *string
		at         *time.Time
		refund     *int64
	)
	if c := b.Cancellation; c != nil {
		reason, by, at, refund = &c.Reason, &c.CancelledBy, &c.CancelledAt, &c.RefundAmount
	}

	err := t.q.QueryRow(ctx, `UPDATE bookings SET status = $1, cancel_reason = $2, cancelled_by = $3,
		cancelled_at = $4, refund_amount = $5, updated_at = now()
		WHERE reference = $6 RETURNING updated_at`,
		string(b.Status), reason, by, at, refund, b.Reference).Scan(&b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", b.Reference, notFound(err))
	}
	return nil
}
