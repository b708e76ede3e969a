package database_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countSettings(t *testing.T, db *sql.DB, key string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM settings WHERE key = $1`, key).Scan(&n))
	return n
}

func TestWithRetryReplaysConflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	var retried []int
	opts := database.DefaultTxOptions()
	opts.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	calls := 0
	err := database.WithRetry(ctx, db, opts, func(tx *sql.Tx) error {
		calls++
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ($1, $2)`, "retry_probe", fmt.Sprint(calls)); err != nil {
			return err
		}
		if calls < 3 {
			return fmt.Errorf("allocate: %w", database.ErrOrderNumberTaken)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{0, 1}, retried)
	assert.Equal(t, 1, countSettings(t, db, "retry_probe"), "rolled back attempts must leave nothing behind")
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	calls := 0
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		calls++
		return database.ErrInsufficientStock
	})

	require.ErrorIs(t, err, database.ErrInsufficientStock)
	assert.Equal(t, 1, calls)
}

func TestWithRetryExhausts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	opts := database.DefaultTxOptions()
	opts.MaxRetries = 2

	calls := 0
	err := database.WithRetry(ctx, db, opts, func(tx *sql.Tx) error {
		calls++
		return database.ErrCouponExhausted
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrRetriesExhausted))
	assert.True(t, errors.Is(err, database.ErrCouponExhausted))
	assert.Equal(t, 3, calls)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('rollback_probe', 'x')`); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countSettings(t, db, "rollback_probe"))
}
