package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

func point(assetID string, ts int64, price float64) *domain.PricePoint {
	return &domain.PricePoint{AssetID: assetID, TimestampMs: ts, Price: price}
}

func TestPriceSeriesStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceSeriesStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PricePoint{
		point("asset1", 3000, 101.0),
		point("asset1", 1000, 100.0),
		point("asset1", 2000, 100.5),
		point("asset2", 1000, 50.0),
	})
	require.NoError(t, err)

	got, err := store.GetByTimeRange(ctx, "asset1", 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(1000), got[0].TimestampMs)
	require.Equal(t, int64(2000), got[1].TimestampMs)
	require.Equal(t, 100.5, got[1].Price)

	// Range is inclusive on both ends.
	got, err = store.GetByTimeRange(ctx, "asset1", 3000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestPriceSeriesStore_DuplicateRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceSeriesStore(conn)
	ctx := context.Background()

	// Intra-batch duplicate.
	err := store.InsertBulk(ctx, []*domain.PricePoint{
		point("asset1", 1000, 100.0),
		point("asset1", 1000, 100.1),
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, []*domain.PricePoint{point("asset1", 1000, 100.0)}))

	// Duplicate against an existing row fails the whole batch.
	err = store.InsertBulk(ctx, []*domain.PricePoint{
		point("asset1", 2000, 100.5),
		point("asset1", 1000, 100.0),
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByTimeRange(ctx, "asset1", 0, 10_000)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestPriceSeriesStore_EmptyBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, NewPriceSeriesStore(conn).InsertBulk(context.Background(), nil))
}
