// Package engine wires the admission decider and the exit tracker to
// the live candidate and tick streams, and owns the buy-cycle clock.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/admission"
	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/observability"
	"wallet-follow-engine/internal/storage"
	"wallet-follow-engine/internal/tracker"
)

// Engine runs the decision loop over candidate and tick streams.
type Engine struct {
	decider   *admission.Decider
	tracker   *tracker.Tracker
	plays     storage.PlayStore
	positions storage.PositionStore
	metrics   *observability.Metrics

	cycleInterval time.Duration
	cycleID       string
}

// Option configures the engine.
type Option func(*Engine)

// WithCycleInterval sets the buy-cycle reset interval.
func WithCycleInterval(d time.Duration) Option {
	return func(e *Engine) { e.cycleInterval = d }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine. Metrics default to a no-op-free nil check;
// cycle interval defaults to one hour.
func New(
	decider *admission.Decider,
	tr *tracker.Tracker,
	plays storage.PlayStore,
	positions storage.PositionStore,
	opts ...Option,
) *Engine {
	e := &Engine{
		decider:       decider,
		tracker:       tr,
		plays:         plays,
		positions:     positions,
		cycleInterval: time.Hour,
		cycleID:       uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore re-tracks pending positions for the given assets after a
// restart. Positions whose play no longer loads are tracked without
// exit logic; they stay open until force-closed.
func (e *Engine) Restore(ctx context.Context, assetIDs []string) error {
	for _, assetID := range assetIDs {
		open, err := e.positions.GetOpenByAsset(ctx, assetID)
		if err != nil {
			return err
		}
		for _, p := range open {
			logic := e.sellLogicFor(ctx, p.PlayID)
			e.tracker.Track(p, logic)
		}
	}
	e.updateOpenGauge()
	log.Info().Int("open_positions", e.tracker.OpenCount()).Msg("restored open positions")
	return nil
}

// Run processes candidates and ticks until the context is cancelled or
// both channels are closed.
func (e *Engine) Run(ctx context.Context, candidates <-chan *domain.Candidate, ticks <-chan *domain.PricePoint) error {
	cycle := time.NewTicker(e.cycleInterval)
	defer cycle.Stop()

	log.Info().Str("cycle", e.cycleID).Dur("interval", e.cycleInterval).Msg("engine started")

	for candidates != nil || ticks != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-cycle.C:
			e.cycleID = uuid.NewString()
			e.decider.Cycles().Reset()
			log.Info().Str("cycle", e.cycleID).Msg("buy cycle reset")

		case cand, ok := <-candidates:
			if !ok {
				candidates = nil
				continue
			}
			e.handleCandidate(ctx, cand)

		case tick, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			e.handleTick(ctx, tick)
		}
	}
	return nil
}

func (e *Engine) handleCandidate(ctx context.Context, cand *domain.Candidate) {
	start := time.Now()
	outcome, err := e.decider.Decide(ctx, cand)
	if err != nil {
		// Outcome write failed; the candidate can be replayed safely.
		log.Error().Err(err).
			Str("wallet", cand.WalletAddress).
			Int64("play", cand.PlayID).
			Msg("admission write failed")
		if e.metrics != nil {
			e.metrics.StoreErrors.WithLabelValues("positions").Inc()
		}
		return
	}

	if e.metrics != nil {
		e.metrics.DecisionLatency.Observe(time.Since(start).Seconds())
		e.metrics.RecordOutcome(string(outcome.Decision), outcome.Reason, outcome.Replayed)
	}

	if outcome.Decision == domain.DecisionGO && !outcome.Position.Status.Terminal() {
		e.tracker.Track(outcome.Position, e.sellLogicFor(ctx, cand.PlayID))
		e.updateOpenGauge()
	}
}

func (e *Engine) handleTick(ctx context.Context, tick *domain.PricePoint) {
	if e.metrics != nil {
		e.metrics.TicksReceived.Inc()
	}

	closed := e.tracker.OnTick(ctx, tick)
	if len(closed) == 0 {
		return
	}

	for _, p := range closed {
		if e.metrics != nil && p.ProfitLossPct != nil {
			e.metrics.RecordClose(p.ExitReason, *p.ProfitLossPct)
		}
	}
	e.updateOpenGauge()
}

// sellLogicFor loads a play's exit configuration, degrading to
// disabled logic when the play is unavailable.
func (e *Engine) sellLogicFor(ctx context.Context, playID int64) domain.SellLogic {
	play, err := e.plays.GetByID(ctx, playID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Int64("play", playID).Msg("load sell logic failed")
		}
		return domain.SellLogic{}
	}
	return play.SellLogic
}

func (e *Engine) updateOpenGauge() {
	if e.metrics != nil {
		e.metrics.OpenPositions.Set(float64(e.tracker.OpenCount()))
	}
}
