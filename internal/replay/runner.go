// Package replay re-runs recorded candidates against historical prices
// to evaluate play configurations offline. Replay writes to isolated
// in-memory stores, never to production tables, and is deterministic
// for a fixed candidate set and price series.
package replay

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"wallet-follow-engine/internal/admission"
	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/features"
	"wallet-follow-engine/internal/filter"
	"wallet-follow-engine/internal/storage"
	"wallet-follow-engine/internal/storage/memory"
	"wallet-follow-engine/internal/tracker"
)

// DefaultHorizonMs is how far past entry the exit simulation reads.
const DefaultHorizonMs = 24 * 60 * 60 * 1000

// Result is one replayed candidate: its admission outcome and, for
// admitted candidates, the position's terminal (or still-open) state.
type Result struct {
	Outcome  *admission.Outcome
	Position *domain.Position
}

// Summary aggregates a replay run.
type Summary struct {
	Candidates int
	Admitted   int
	Rejected   map[string]int // by reason
	Exited     map[string]int // by exit reason
	StillOpen  int

	Wins              int
	Losses            int
	MeanProfitLossPct float64
}

// Runner replays candidates through the live decision code paths.
type Runner struct {
	prices    storage.PriceSeriesStore
	plays     storage.PlayStore
	positions *memory.PositionStore
	decider   *admission.Decider
	tracker   *tracker.Tracker

	limiter   *rate.Limiter
	horizonMs int64
}

// Option configures a Runner.
type Option func(*Runner)

// WithRateLimit throttles price-store reads, protecting a shared
// ClickHouse from a tight replay loop.
func WithRateLimit(perSecond float64) Option {
	return func(r *Runner) { r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// WithHorizon bounds how far past entry the exit simulation looks.
func WithHorizon(d time.Duration) Option {
	return func(r *Runner) { r.horizonMs = d.Milliseconds() }
}

// NewRunner creates a replay runner. Price series, plays and filter
// projects are read from the given stores; positions and audit records
// go to fresh in-memory stores owned by the runner.
func NewRunner(
	prices storage.PriceSeriesStore,
	plays storage.PlayStore,
	projects storage.FilterProjectStore,
	opts ...Option,
) *Runner {
	positions := memory.NewPositionStore()
	r := &Runner{
		prices:    prices,
		plays:     plays,
		positions: positions,
		decider: admission.NewDecider(
			features.NewExtractor(prices),
			plays,
			positions,
			memory.NewAuditStore(),
			filter.NewManualSelector(projects),
			nil,
		),
		tracker:   tracker.NewTracker(positions),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		horizonMs: DefaultHorizonMs,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays candidates in observation order and returns per-candidate
// results plus an aggregate summary.
func (r *Runner) Run(ctx context.Context, candidates []*domain.Candidate) (*Summary, []*Result, error) {
	ordered := make([]*domain.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ObservedTimeMs != ordered[j].ObservedTimeMs {
			return ordered[i].ObservedTimeMs < ordered[j].ObservedTimeMs
		}
		return ordered[i].WalletAddress < ordered[j].WalletAddress
	})

	summary := &Summary{
		Rejected: make(map[string]int),
		Exited:   make(map[string]int),
	}
	var results []*Result

	for _, cand := range ordered {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		outcome, err := r.decider.Decide(ctx, cand)
		if err != nil {
			return nil, nil, err
		}

		summary.Candidates++
		res := &Result{Outcome: outcome}

		if outcome.Decision == domain.DecisionNOGO {
			summary.Rejected[outcome.Reason]++
			results = append(results, res)
			continue
		}
		summary.Admitted++

		final, err := r.simulateExit(ctx, outcome.Position)
		if err != nil {
			return nil, nil, err
		}
		res.Position = final
		results = append(results, res)
	}

	// Terminal tallies come from the store after every simulation has
	// run, so the summary cannot disagree with the recorded positions.
	var plSum float64
	var plCount int
	for _, res := range results {
		if res.Position == nil {
			continue
		}
		final, err := r.positions.GetByID(ctx, res.Position.PositionID)
		if err != nil {
			return nil, nil, err
		}
		res.Position = final

		if final.Status == domain.StatusPending {
			summary.StillOpen++
			continue
		}
		summary.Exited[final.ExitReason]++
		if final.ProfitLossPct != nil {
			pl := *final.ProfitLossPct
			plSum += pl
			plCount++
			if pl > 0 {
				summary.Wins++
			} else {
				summary.Losses++
			}
		}
	}

	if plCount > 0 {
		summary.MeanProfitLossPct = plSum / float64(plCount)
	}
	return summary, results, nil
}

// simulateExit feeds post-entry prices through the tracker until the
// position exits or the horizon runs out.
func (r *Runner) simulateExit(ctx context.Context, p *domain.Position) (*domain.Position, error) {
	play, err := r.plays.GetByID(ctx, p.PlayID)
	if err != nil {
		return nil, err
	}
	r.tracker.Track(p, play.SellLogic)

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	points, err := r.prices.GetByTimeRange(ctx, p.AssetID, p.EntryTimeMs+1, p.EntryTimeMs+r.horizonMs)
	if err != nil {
		return nil, err
	}

	for _, point := range points {
		if closed := r.tracker.OnTick(ctx, point); len(closed) > 0 {
			break
		}
	}

	// A position that survives its horizon stays open; drop its monitor
	// so a later candidate's ticks cannot close it past the horizon.
	final, err := r.positions.GetByID(ctx, p.PositionID)
	if err != nil {
		return nil, err
	}
	if final.Status == domain.StatusPending {
		r.tracker.Untrack(p.PositionID)
	}
	return final, nil
}
