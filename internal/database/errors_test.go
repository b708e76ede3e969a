package database

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"order number collision", &pq.Error{Code: "23505", Constraint: "orders_order_number_key"}, ErrorClassConflict},
		{"other unique violation", &pq.Error{Code: "23505", Constraint: "users_email_key"}, ErrorClassPermanent},
		{"check violation", &pq.Error{Code: "23514"}, ErrorClassPermanent},
		{"wrapped collision", fmt.Errorf("insert order: %w", &pq.Error{Code: "23505", Constraint: "orders_order_number_key"}), ErrorClassConflict},
		{"coupon exhausted", fmt.Errorf("increment coupon: %w", ErrCouponExhausted), ErrorClassConflict},
		{"insufficient stock", ErrInsufficientStock, ErrorClassPermanent},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(ErrOrderNumberTaken))
	assert.False(t, IsRetryable(ErrInsufficientStock))
	assert.False(t, IsRetryable(&pq.Error{Code: "23503"}))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, IsCheckViolation(fmt.Errorf("wrap: %w", &pq.Error{Code: "23514"})))
	assert.False(t, IsCheckViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsCheckViolation(ErrInsufficientStock))
}
