// Package tracker is the position-exit engine. It follows one monitor
// per open position, feeds price ticks through its tolerance bands and
// archives the position when an exit triggers.
package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// Tracker routes ticks to monitors and persists exits. An archive
// failure keeps the monitor alive with its captured exit signal so the
// next tick retries the write with the same exit price and time.
type Tracker struct {
	mu        sync.Mutex
	positions storage.PositionStore
	monitors  map[string]*Monitor            // by position id
	byAsset   map[string]map[string]*Monitor // asset id → position id → monitor
}

// NewTracker creates an empty tracker over the given position store.
func NewTracker(positions storage.PositionStore) *Tracker {
	return &Tracker{
		positions: positions,
		monitors:  make(map[string]*Monitor),
		byAsset:   make(map[string]map[string]*Monitor),
	}
}

// Track registers an open position. Re-tracking an already tracked
// position is a no-op so restarts can replay admissions safely.
func (t *Tracker) Track(p *domain.Position, logic domain.SellLogic) {
	if p.Status.Terminal() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.monitors[p.PositionID]; ok {
		return
	}

	m := NewMonitor(p, logic)
	t.monitors[p.PositionID] = m
	if t.byAsset[p.AssetID] == nil {
		t.byAsset[p.AssetID] = make(map[string]*Monitor)
	}
	t.byAsset[p.AssetID][p.PositionID] = m

	log.Debug().
		Str("position", p.PositionID).
		Str("asset", p.AssetID).
		Bool("short", p.ShortPlay).
		Msg("tracking position")
}

// Untrack drops a monitor without closing its position. The position
// stays open in the store; a later Track resumes it with fresh peak
// state.
func (t *Tracker) Untrack(positionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.monitors[positionID]
	if !ok {
		return
	}

	assetID := m.Position.AssetID
	delete(t.monitors, positionID)
	delete(t.byAsset[assetID], positionID)
	if len(t.byAsset[assetID]) == 0 {
		delete(t.byAsset, assetID)
	}
}

// OpenCount returns the number of positions currently tracked.
func (t *Tracker) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.monitors)
}

// OnTick feeds one tick to every monitor on the tick's asset and
// archives any that exit. Returns the positions closed by this tick.
// A failed archive is logged and retried on the next tick.
func (t *Tracker) OnTick(ctx context.Context, tick *domain.PricePoint) []*domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	var closed []*domain.Position
	for _, m := range t.byAsset[tick.AssetID] {
		sig := m.Observe(tick.Price, tick.TimestampMs)
		if sig == nil {
			continue
		}

		p, err := t.archiveLocked(ctx, m, sig, domain.StatusSold)
		if err != nil {
			log.Error().Err(err).
				Str("position", m.Position.PositionID).
				Msg("archive failed, will retry on next tick")
			continue
		}
		closed = append(closed, p)
	}
	return closed
}

// ForceClose cancels a tracked position at the given price, bypassing
// the tolerance bands.
func (t *Tracker) ForceClose(ctx context.Context, positionID string, price float64, timeMs int64) (*domain.Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.monitors[positionID]
	if !ok {
		return nil, fmt.Errorf("force close %s: %w", positionID, storage.ErrNotFound)
	}

	sig := &ExitSignal{Reason: domain.ExitReasonForced, Price: price, TimeMs: timeMs}
	return t.archiveLocked(ctx, m, sig, domain.StatusCancelled)
}

// archiveLocked persists the terminal state and drops the monitor.
// Caller holds t.mu.
func (t *Tracker) archiveLocked(ctx context.Context, m *Monitor, sig *ExitSignal, status domain.PositionStatus) (*domain.Position, error) {
	p := m.Position
	exitPrice := sig.Price
	exitTime := sig.TimeMs
	pl := domain.ComputeProfitLossPct(p.EntryPrice, exitPrice, p.ShortPlay)
	potential := m.PeakGainPct()

	p.ExitPrice = &exitPrice
	p.ExitTimeMs = &exitTime
	p.Status = status
	p.ExitReason = sig.Reason
	p.ProfitLossPct = &pl
	p.PotentialGains = &potential

	if err := t.positions.MarkClosed(ctx, p); err != nil {
		return nil, err
	}

	delete(t.monitors, p.PositionID)
	delete(t.byAsset[p.AssetID], p.PositionID)
	if len(t.byAsset[p.AssetID]) == 0 {
		delete(t.byAsset, p.AssetID)
	}

	log.Info().
		Str("position", p.PositionID).
		Str("reason", sig.Reason).
		Float64("exit_price", exitPrice).
		Float64("profit_loss_pct", pl).
		Float64("potential_gains", potential).
		Msg("position closed")

	return p, nil
}
