package reservation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, zap.NewNop())
}

func TestReserveAndRelease(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Reserve(ctx, "HALFPRICE", 2)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.Release(ctx, id))

	// The slot is free again.
	id2, err := store.Reserve(ctx, "HALFPRICE", 1)
	require.NoError(t, err)
	require.NotEmpty(t, id2)
}

func TestReserveExhausted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "100off", 1)
	require.NoError(t, err)

	_, err = store.Reserve(ctx, "100off", 1)
	assert.ErrorIs(t, err, discountdomain.ErrDiscountExhausted)
}

func TestReleaseIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Reserve(ctx, "HALFPRICE", 1)
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, id))
	require.NoError(t, store.Release(ctx, id))
	require.NoError(t, store.Release(ctx, "never-reserved"))
	require.NoError(t, store.Release(ctx, ""))

	// Double release must not free a slot twice.
	_, err = store.Reserve(ctx, "HALFPRICE", 1)
	require.NoError(t, err)
	_, err = store.Reserve(ctx, "HALFPRICE", 1)
	assert.ErrorIs(t, err, discountdomain.ErrDiscountExhausted)
}
