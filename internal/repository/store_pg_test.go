package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewPGStore(t *testing.T) {
	pool := &pgxpool.Pool{}
	store := NewPGStore(pool, DefaultRetryPolicy())
	assert.NotNil(t, store)
}

func TestSchema_IsEmbedded(t *testing.T) {
	for _, table := range []string{"experiences", "time_slots", "promo_codes", "promo_usages", "bookings"} {
		assert.True(t, strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
	assert.Contains(t, schemaSQL, "booked_count <= total_capacity")
	assert.Contains(t, schemaSQL, "NOT NULL UNIQUE")
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsConflict(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"})))
	assert.True(t, IsConflict(ErrConflict))
	assert.False(t, IsConflict(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsConflict(errors.New("boom")))
}

func TestWithRetry_RetriesConflictsOnly(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := withRetry(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), policy, func() error {
		calls++
		return &pgconn.PgError{Code: "40001"}
	})
	assert.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, 3, calls)

	calls = 0
	business := errors.New("not enough spots")
	err = withRetry(context.Background(), policy, func() error {
		calls++
		return business
	})
	assert.Equal(t, business, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, RetryPolicy{Attempts: 5, Backoff: time.Second}, func() error {
		return ErrConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNotFound(t *testing.T) {
	assert.Equal(t, ErrNotFound, notFound(pgx.ErrNoRows))
	other := errors.New("x")
	assert.Equal(t, other, notFound(other))
}
