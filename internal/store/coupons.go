package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/models"
	"github.com/shopspring/decimal"
)

const couponColumns = `id, code, type, value, min_order_amount, max_uses, used_count, valid_from, valid_until, active`

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	var (
		minOrder              decimal.NullDecimal
		maxUses               sql.NullInt64
		validFrom, validUntil sql.NullTime
	)

	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Type,
		&coupon.Value,
		&minOrder,
		&maxUses,
		&coupon.UsedCount,
		&validFrom,
		&validUntil,
		&coupon.Active,
	)
	if err != nil {
		return nil, err
	}

	coupon.MinOrderAmount = decimalPtr(minOrder)
	if maxUses.Valid {
		n := int(maxUses.Int64)
		coupon.MaxUses = &n
	}
	coupon.ValidFrom = timePtr(validFrom)
	coupon.ValidUntil = timePtr(validUntil)

	return coupon, nil
}

// GetCouponByCode matches codes case-insensitively.
func GetCouponByCode(ctx context.Context, q DBTX, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = UPPER($1)`

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return coupon, nil
}

func GetCoupon(ctx context.Context, q DBTX, id int64) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return coupon, nil
}

func CreateCoupon(ctx context.Context, q DBTX, c models.Coupon) (*models.Coupon, error) {
	query := `
		INSERT INTO coupons (code, type, value, min_order_amount, max_uses, used_count, valid_from, valid_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + couponColumns

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query,
		c.Code, c.Type, c.Value, c.MinOrderAmount, c.MaxUses, c.UsedCount, c.ValidFrom, c.ValidUntil, c.Active))
	if err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	return coupon, nil
}

// IncrementCouponUsage counts one redemption. It fails with
// ErrCouponExhausted when the coupon has reached its usage cap.
func IncrementCouponUsage(ctx context.Context, q DBTX, id int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE coupons
		 SET used_count = used_count + 1,
		     updated_at = NOW()
		 WHERE id = $1
		   AND (max_uses IS NULL OR used_count < max_uses)`,
		id)
	if err != nil {
		if database.IsCheckViolation(err) {
			return database.ErrCouponExhausted
		}
		return fmt.Errorf("increment coupon usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCouponExhausted
	}

	return nil
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
