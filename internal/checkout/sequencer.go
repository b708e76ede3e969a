package checkout

import (
	"context"
	"strconv"

	"github.com/safar/order-engine/internal/store"
)

// NextOrderNumber proposes the number after the highest one allocated, never
// below base. Two transactions can propose the same number; the unique
// constraint on orders rejects the loser, which is then replayed.
func NextOrderNumber(ctx context.Context, q store.DBTX, base int64) (string, error) {
	last, ok, err := store.MaxOrderNumber(ctx, q)
	if err != nil {
		return "", err
	}

	next := base
	if ok && last+1 > next {
		next = last + 1
	}
	return strconv.FormatInt(next, 10), nil
}
