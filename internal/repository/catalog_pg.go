package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, experience_id, starts_at, ends_at, total_capacity, booked_count,
	price_cents, special_price_cents, available, cancellation_deadline, created_at, updated_at`

func scanSlot(row pgx.Row) (*domain.TimeSlot, error) {
	var s domain.TimeSlot
	if err := row.Scan(&s.ID, &s.ExperienceID, &s.StartsAt, &s.EndsAt, &s.TotalCapacity, &s.BookedCount,
		&s.PriceCents, &s.SpecialPriceCents, &s.Available, &s.CancellationDeadline, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *PGStore) GetExperience(ctx context.Context, id string) (*domain.Experience, error) {
	var e domain.Experience
	err := s.db.QueryRow(ctx, `SELECT id, title, category, price_cents, currency, default_capacity, active, created_at, updated_at
		FROM experiences WHERE id = $1`, id).
		Scan(&e.ID, &e.Title, &e.Category, &e.PriceCents, &e.Currency, &e.DefaultCapacity, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get experience %s: %w", id, notFound(err))
	}
	return &e, nil
}

func (s *PGStore) GetSlot(ctx context.Context, id string) (*domain.TimeSlot, error) {
	slot, err := scanSlot(s.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", id, notFound(err))
	}
	return slot, nil
}

func (s *PGStore) ListSlots(ctx context.Context, experienceID string) ([]domain.TimeSlot, error) {
	rows, err := s.db.Query(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE experience_id = $1 ORDER BY starts_at`, experienceID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	slots := make([]domain.TimeSlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

func (t *pgTx) GetSlotForUpdate(ctx context.Context, id string) (*domain.TimeSlot, error) {
	slot, err := scanSlot(t.q.QueryRow(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("lock slot %s: %w", id, notFound(err))
	}
	return slot, nil
}

func (t *pgTx) UpdateSlotBookedCount(ctx context.Context, id string, bookedCount int) error {
	cmd, err := t.q.Exec(ctx, `UPDATE time_slots SET booked_count = $1, updated_at = now() WHERE id = $2`, bookedCount, id)
	if err != nil {
		return fmt.Errorf("update slot %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update slot %s: %w", id, ErrNotFound)
	}
	return nil
}
