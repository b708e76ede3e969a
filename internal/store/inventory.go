package store

import (
	"context"
	"fmt"

	"github.com/safar/order-engine/internal/database"
)

// StockLine is one quantity movement against either a simple product or,
// when VariantID is set, a single variant.
type StockLine struct {
	ProductID int64
	VariantID *int64
	Quantity  int
}

func (l StockLine) target() (table string, id int64) {
	if l.VariantID != nil {
		return "product_variants", *l.VariantID
	}
	return "products", l.ProductID
}

// ReserveStock decrements stock only if enough remains; the check and the
// write are one statement, so concurrent reservations cannot oversell.
func ReserveStock(ctx context.Context, q DBTX, line StockLine) error {
	table, id := line.target()

	result, err := q.ExecContext(ctx,
		`UPDATE `+table+`
		 SET stock = stock - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock >= $1`,
		line.Quantity, id)
	if err != nil {
		if database.IsCheckViolation(err) {
			return database.ErrInsufficientStock
		}
		return fmt.Errorf("reserve stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

// RestoreStock adds the quantity back. It reports false when the product or
// variant no longer exists; callers skip such lines.
func RestoreStock(ctx context.Context, q DBTX, line StockLine) (bool, error) {
	table, id := line.target()

	result, err := q.ExecContext(ctx,
		`UPDATE `+table+`
		 SET stock = stock + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		line.Quantity, id)
	if err != nil {
		return false, fmt.Errorf("restore stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
