package features

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage/memory"
)

const minuteMs = 60_000

// seedSeries inserts one sample per minute offset with the given prices.
// Offsets are minutes before entryTime.
func seedSeries(t *testing.T, store *memory.PriceSeriesStore, entryTime int64, prices map[int]float64) {
	t.Helper()
	var points []*domain.PricePoint
	for offset, price := range prices {
		points = append(points, &domain.PricePoint{
			AssetID:     "asset1",
			TimestampMs: entryTime - int64(offset)*minuteMs,
			Price:       price,
		})
	}
	require.NoError(t, store.InsertBulk(context.Background(), points))
}

func TestExtract_AllWindowsResolved(t *testing.T) {
	store := memory.NewPriceSeriesStore()
	entryTime := int64(10_000_000)
	seedSeries(t, store, entryTime, map[int]float64{1: 99.0, 2: 98.5, 3: 98.0, 5: 97.0, 10: 95.0})

	ex := NewExtractor(store)
	set := ex.Extract(context.Background(), "asset1", entryTime, 100.0)

	require.Len(t, set.Windows, 5)
	for _, w := range set.Windows {
		require.NotNil(t, w.PctChange, "window %d should resolve", w.WindowMinutes)
	}

	w10 := set.Window(10)
	require.InDelta(t, (100.0-95.0)/95.0*100, *w10.PctChange, 1e-9)
	require.Equal(t, domain.TrendRising, set.Trend)
}

func TestExtract_PartialResolution(t *testing.T) {
	store := memory.NewPriceSeriesStore()
	entryTime := int64(10_000_000)
	// Only the 5-minute sample exists; the rest of the series is sparse.
	seedSeries(t, store, entryTime, map[int]float64{5: 101.0})

	ex := NewExtractor(store)
	set := ex.Extract(context.Background(), "asset1", entryTime, 100.0)

	require.Nil(t, set.Window(1).PctChange)
	require.Nil(t, set.Window(10).PctChange)
	require.NotNil(t, set.Window(5).PctChange)
	require.InDelta(t, (100.0-101.0)/101.0*100, *set.Window(5).PctChange, 1e-9)
}

func TestExtract_NoData(t *testing.T) {
	store := memory.NewPriceSeriesStore()

	ex := NewExtractor(store)
	set := ex.Extract(context.Background(), "asset1", 10_000_000, 100.0)

	require.Equal(t, domain.TrendUnknown, set.Trend)
	require.Nil(t, set.LongestResolved())
}

func TestExtract_TrendFalling(t *testing.T) {
	store := memory.NewPriceSeriesStore()
	entryTime := int64(10_000_000)
	seedSeries(t, store, entryTime, map[int]float64{1: 100.5, 10: 101.0})

	ex := NewExtractor(store)
	set := ex.Extract(context.Background(), "asset1", entryTime, 100.0)

	require.Equal(t, domain.TrendFalling, set.Trend)
}

func TestExtract_TrendFlat(t *testing.T) {
	store := memory.NewPriceSeriesStore()
	entryTime := int64(10_000_000)
	// 1-minute up, 10-minute down: mixed direction is flat.
	seedSeries(t, store, entryTime, map[int]float64{1: 99.0, 10: 101.0})

	ex := NewExtractor(store)
	set := ex.Extract(context.Background(), "asset1", entryTime, 100.0)

	require.Equal(t, domain.TrendFlat, set.Trend)
}

type failingStore struct{}

func (f *failingStore) InsertBulk(context.Context, []*domain.PricePoint) error {
	return errors.New("write failed")
}

func (f *failingStore) GetByTimeRange(context.Context, string, int64, int64) ([]*domain.PricePoint, error) {
	return nil, errors.New("read failed")
}

func TestExtract_StoreFailureIsNoData(t *testing.T) {
	ex := NewExtractor(&failingStore{})
	set := ex.Extract(context.Background(), "asset1", 10_000_000, 100.0)

	require.NotNil(t, set)
	require.Equal(t, domain.TrendUnknown, set.Trend)
	for _, w := range set.Windows {
		require.Nil(t, w.PctChange)
	}
}

func TestExtract_CustomWindows(t *testing.T) {
	store := memory.NewPriceSeriesStore()
	entryTime := int64(10_000_000)
	seedSeries(t, store, entryTime, map[int]float64{15: 90.0})

	ex := NewExtractor(store, WithWindows([]int{15, 5}))
	set := ex.Extract(context.Background(), "asset1", entryTime, 100.0)

	require.Len(t, set.Windows, 2)
	require.Equal(t, 5, set.Windows[0].WindowMinutes, "windows must be ascending")
	require.NotNil(t, set.Window(15).PctChange)
}
