package settings

import (
	"context"
	"testing"
	"time"

	"github.com/safar/order-engine/internal/store"
	"github.com/safar/order-engine/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedSourceServesFromRedis(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.PutSetting(ctx, db, KeyShippingOutsideHub, "120"))

	source := NewCachedSource(client, NewDBSource(db, defaultSnapshot()), time.Minute, nil)

	s, err := source.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, s.ShippingOutsideHub.Equal(decimal.NewFromInt(120)))

	// A database change is not visible until the cached copy is dropped.
	require.NoError(t, store.PutSetting(ctx, db, KeyShippingOutsideHub, "90"))
	s, err = source.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, s.ShippingOutsideHub.Equal(decimal.NewFromInt(120)))

	require.NoError(t, source.Invalidate(ctx))
	s, err = source.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, s.ShippingOutsideHub.Equal(decimal.NewFromInt(90)))
}

func TestCachedSourceFallsBackWhenRedisIsDown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.PutSetting(ctx, db, KeyCurrency, "EUR"))
	require.NoError(t, client.Close())

	source := NewCachedSource(client, NewDBSource(db, defaultSnapshot()), time.Minute, nil)
	s, err := source.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", s.Currency)
}
