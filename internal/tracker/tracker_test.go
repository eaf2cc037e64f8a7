package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
	"wallet-follow-engine/internal/storage/memory"
)

func openPosition(id string, entry float64, short bool) *domain.Position {
	return &domain.Position{
		PositionID:    id,
		PlayID:        1,
		WalletAddress: "wallet1",
		AssetID:       "asset1",
		ShortPlay:     short,
		EntryPrice:    entry,
		EntryTimeMs:   1000,
		Status:        domain.StatusPending,
	}
}

func oneTierLogic(decreaseTol float64, tiers ...*domain.IncreaseTier) domain.SellLogic {
	return domain.SellLogic{DecreaseTolerancePct: decreaseTol, IncreaseTiers: tiers}
}

func tick(price float64, timeMs int64) *domain.PricePoint {
	return &domain.PricePoint{AssetID: "asset1", TimestampMs: timeMs, Price: price}
}

func newTracked(t *testing.T, p *domain.Position, logic domain.SellLogic) (*Tracker, *memory.PositionStore) {
	t.Helper()
	store := memory.NewPositionStore()
	require.NoError(t, store.Insert(context.Background(), p))
	tr := NewTracker(store)
	tr.Track(p, logic)
	return tr, store
}

func TestTracker_DecreaseTolerance(t *testing.T) {
	p := openPosition("p1", 100.0, false)
	tr, store := newTracked(t, p, oneTierLogic(1.0))

	ctx := context.Background()
	// 99.5 is a 0.5% loss, inside tolerance.
	require.Empty(t, tr.OnTick(ctx, tick(99.5, 2000)))
	// 98.9 is a 1.1% loss, past the 1.0% tolerance.
	closed := tr.OnTick(ctx, tick(98.9, 3000))
	require.Len(t, closed, 1)

	got, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusSold, got.Status)
	require.Equal(t, domain.ExitReasonDecrease, got.ExitReason)
	require.InDelta(t, -1.1, *got.ProfitLossPct, 1e-9)
	require.Equal(t, 0, tr.OpenCount())
}

func TestTracker_IncreaseRetrace(t *testing.T) {
	p := openPosition("p1", 100.0, false)
	tr, store := newTracked(t, p, oneTierLogic(1.0,
		&domain.IncreaseTier{RangeFromPct: 0, RangeToPct: 5, TolerancePct: 0.1},
	))

	ctx := context.Background()
	require.Empty(t, tr.OnTick(ctx, tick(102.0, 2000))) // peak
	// Retrace from 102 to 101.89 is ~0.108%, past the 0.1% tolerance.
	closed := tr.OnTick(ctx, tick(101.89, 3000))
	require.Len(t, closed, 1)

	got, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.ExitReasonRetrace, got.ExitReason)
	require.InDelta(t, 1.89, *got.ProfitLossPct, 1e-9)
	require.InDelta(t, 2.0, *got.PotentialGains, 1e-9)
}

func TestTracker_ExactToleranceHolds(t *testing.T) {
	p := openPosition("p1", 100.0, false)
	tr, _ := newTracked(t, p, oneTierLogic(1.0))

	// Exactly -1.0% is within tolerance; only a strictly larger drop sells.
	require.Empty(t, tr.OnTick(context.Background(), tick(99.0, 2000)))
	require.Equal(t, 1, tr.OpenCount())
}

func TestTracker_TierBoundaryOwnership(t *testing.T) {
	logic := oneTierLogic(1.0,
		&domain.IncreaseTier{RangeFromPct: 0, RangeToPct: 5, TolerancePct: 0.5},
		&domain.IncreaseTier{RangeFromPct: 5, RangeToPct: 10, TolerancePct: 2.0},
	)

	p := openPosition("p1", 100.0, false)
	tr, _ := newTracked(t, p, logic)

	ctx := context.Background()
	// Peak gain exactly 5% belongs to the [5,10) tier with its looser
	// 2.0% tolerance, so a 1% retrace holds.
	require.Empty(t, tr.OnTick(ctx, tick(105.0, 2000)))
	require.Empty(t, tr.OnTick(ctx, tick(103.95, 3000)))
	require.Equal(t, 1, tr.OpenCount())
}

func TestTracker_GainPastLastTierUsesLastTolerance(t *testing.T) {
	logic := oneTierLogic(1.0,
		&domain.IncreaseTier{RangeFromPct: 0, RangeToPct: 5, TolerancePct: 0.5},
		&domain.IncreaseTier{RangeFromPct: 5, RangeToPct: 10, TolerancePct: 2.0},
	)

	p := openPosition("p1", 100.0, false)
	tr, store := newTracked(t, p, logic)

	ctx := context.Background()
	require.Empty(t, tr.OnTick(ctx, tick(120.0, 2000))) // +20%, past the last range
	// 2.5% retrace from 120 exceeds the last tier's 2.0% tolerance.
	closed := tr.OnTick(ctx, tick(117.0, 3000))
	require.Len(t, closed, 1)

	got, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.ExitReasonRetrace, got.ExitReason)
	require.InDelta(t, 20.0, *got.PotentialGains, 1e-9)
}

func TestTracker_ShortPlayInverted(t *testing.T) {
	p := openPosition("p1", 100.0, true)
	tr, store := newTracked(t, p, oneTierLogic(1.0,
		&domain.IncreaseTier{RangeFromPct: 0, RangeToPct: 5, TolerancePct: 0.5},
	))

	ctx := context.Background()
	// Falling price is a gain for a short: trough 98 is +2%.
	require.Empty(t, tr.OnTick(ctx, tick(98.0, 2000)))
	// Bounce to 98.6 retraces ~0.61% from the trough, past 0.5%.
	closed := tr.OnTick(ctx, tick(98.6, 3000))
	require.Len(t, closed, 1)

	got, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.ExitReasonRetrace, got.ExitReason)
	require.InDelta(t, 1.4, *got.ProfitLossPct, 1e-9)
	require.InDelta(t, 2.0, *got.PotentialGains, 1e-9)
}

func TestTracker_ShortPlayDecrease(t *testing.T) {
	p := openPosition("p1", 100.0, true)
	tr, store := newTracked(t, p, oneTierLogic(1.0))

	// Rising price is the losing direction for a short.
	closed := tr.OnTick(context.Background(), tick(101.1, 2000))
	require.Len(t, closed, 1)

	got, err := store.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, domain.ExitReasonDecrease, got.ExitReason)
	require.InDelta(t, -1.1, *got.ProfitLossPct, 1e-9)
}

func TestTracker_NoLogicNeverSells(t *testing.T) {
	p := openPosition("p1", 100.0, false)
	tr, _ := newTracked(t, p, domain.SellLogic{})

	ctx := context.Background()
	require.Empty(t, tr.OnTick(ctx, tick(50.0, 2000)))
	require.Empty(t, tr.OnTick(ctx, tick(200.0, 3000)))
	require.Equal(t, 1, tr.OpenCount())
}

func TestTracker_ForceClose(t *testing.T) {
	p := openPosition("p1", 100.0, false)
	tr, store := newTracked(t, p, oneTierLogic(1.0))

	ctx := context.Background()
	closed, err := tr.ForceClose(ctx, "p1", 100.5, 2000)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, closed.Status)
	require.Equal(t, domain.ExitReasonForced, closed.ExitReason)

	got, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, got.Status)

	_, err = tr.ForceClose(ctx, "p1", 100.5, 3000)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTracker_UntrackLeavesPositionOpen(t *testing.T) {
	p := openPosition("p1", 100.0, false)
	tr, store := newTracked(t, p, oneTierLogic(1.0))
	ctx := context.Background()

	tr.Untrack("p1")
	require.Equal(t, 0, tr.OpenCount())

	// No monitor, no exit, even past the tolerance.
	require.Empty(t, tr.OnTick(ctx, tick(98.0, 2000)))

	got, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, got.Status)

	// Unknown ids are a no-op.
	tr.Untrack("p1")
	tr.Untrack("missing")
}

func TestTracker_RetrackIsNoop(t *testing.T) {
	p := openPosition("p1", 100.0, false)
	tr, _ := newTracked(t, p, oneTierLogic(1.0))
	tr.Track(p, oneTierLogic(1.0))
	require.Equal(t, 1, tr.OpenCount())
}

// failOnceStore fails the first MarkClosed to exercise the retry path.
type failOnceStore struct {
	*memory.PositionStore
	failed bool
}

func (s *failOnceStore) MarkClosed(ctx context.Context, p *domain.Position) error {
	if !s.failed {
		s.failed = true
		return errors.New("transient write failure")
	}
	return s.PositionStore.MarkClosed(ctx, p)
}

func TestTracker_ArchiveRetryKeepsExitSignal(t *testing.T) {
	store := &failOnceStore{PositionStore: memory.NewPositionStore()}
	ctx := context.Background()

	p := openPosition("p1", 100.0, false)
	require.NoError(t, store.Insert(ctx, p))

	tr := NewTracker(store)
	tr.Track(p, oneTierLogic(1.0))

	// Trigger at 98.9; the first archive fails.
	require.Empty(t, tr.OnTick(ctx, tick(98.9, 2000)))
	require.Equal(t, 1, tr.OpenCount())

	// The retry tick has a different price, but the exit must keep the
	// triggering tick's price and time.
	closed := tr.OnTick(ctx, tick(97.0, 3000))
	require.Len(t, closed, 1)
	require.Equal(t, 98.9, *closed[0].ExitPrice)
	require.Equal(t, int64(2000), *closed[0].ExitTimeMs)
	require.InDelta(t, -1.1, *closed[0].ProfitLossPct, 1e-9)
}
