// Package admission decides whether a candidate becomes a real
// position. Every outcome, GO or NO_GO, produces a position record and
// an immutable audit record so decisions can be replayed and tuned.
package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/features"
	"wallet-follow-engine/internal/filter"
	"wallet-follow-engine/internal/idhash"
	"wallet-follow-engine/internal/storage"
)

// Outcome is the terminal result of one admission decision.
type Outcome struct {
	Decision domain.Decision
	Reason   string
	Position *domain.Position
	Audit    *domain.AuditRecord

	// Replayed is set when the outcome was already recorded by an
	// earlier attempt and returned as-is.
	Replayed bool
}

// Decider runs the admission state machine: NEW → {ADMITTED, REJECTED}.
type Decider struct {
	extractor *features.Extractor
	plays     storage.PlayStore
	positions storage.PositionStore
	audits    storage.AuditStore

	manual    *filter.ManualSelector
	aiManaged *filter.AIManagedSelector

	bundler *Bundler
	cycles  *CycleCounter
}

// NewDecider wires an admission decider. aiManaged may be nil when no
// external optimizer is connected; AI-managed plays then fall back to
// their manual project list.
func NewDecider(
	extractor *features.Extractor,
	plays storage.PlayStore,
	positions storage.PositionStore,
	audits storage.AuditStore,
	manual *filter.ManualSelector,
	aiManaged *filter.AIManagedSelector,
) *Decider {
	return &Decider{
		extractor: extractor,
		plays:     plays,
		positions: positions,
		audits:    audits,
		manual:    manual,
		aiManaged: aiManaged,
		bundler:   NewBundler(),
		cycles:    NewCycleCounter(),
	}
}

// Cycles exposes the cycle counter for the scheduler's cycle reset.
func (d *Decider) Cycles() *CycleCounter {
	return d.cycles
}

// Decide evaluates one candidate to a terminal verdict. It never
// returns a nil outcome together with a nil error: store failures
// resolve to NO_GO with a diagnostic reason rather than leaving the
// candidate unresolved. The only error returned is a write failure on
// the outcome itself, which the caller may retry; retries are
// idempotent via deterministic position ids.
func (d *Decider) Decide(ctx context.Context, cand *domain.Candidate) (*Outcome, error) {
	positionID := idhash.ComputePositionID(cand.PlayID, cand.WalletAddress, cand.AssetID, cand.ObservedTimeMs)

	// A recorded outcome wins over re-evaluation: this keeps retries
	// from double-counting cycle caps and bundle observations.
	if existing, err := d.positions.GetByID(ctx, positionID); err == nil {
		audit, auditErr := d.audits.GetByPositionID(ctx, positionID)
		if auditErr != nil && !errors.Is(auditErr, storage.ErrNotFound) {
			return nil, auditErr
		}
		decision := domain.DecisionGO
		if existing.Status == domain.StatusNoGo {
			decision = domain.DecisionNOGO
		}
		outcome := &Outcome{Decision: decision, Position: existing, Audit: audit, Replayed: true}
		if audit != nil {
			outcome.Reason = audit.Reason
		}
		return outcome, nil
	}

	play, err := d.plays.GetByID(ctx, cand.PlayID)
	if err != nil {
		log.Error().Err(err).Int64("play", cand.PlayID).Msg("play config unavailable")
		return d.record(ctx, cand, positionID, nil, nil, nil, domain.DecisionNOGO, domain.ReasonConfigMissing)
	}

	// Hard precondition on the originating wallet type, before any
	// feature work.
	if !play.TriggerOnPerp.Allows(cand.WalletKind) {
		return d.record(ctx, cand, positionID, play, nil, nil, domain.DecisionNOGO, domain.ReasonWalletType)
	}

	if err := ValidateWalletAddress(cand.WalletAddress); err != nil {
		log.Debug().Err(err).Str("wallet", cand.WalletAddress).Msg("rejecting invalid wallet")
		return d.record(ctx, cand, positionID, play, nil, nil, domain.DecisionNOGO, domain.ReasonInvalidWallet)
	}

	set := d.extractor.Extract(ctx, cand.AssetID, cand.ObservedTimeMs, cand.ObservedPrice)
	preEntry := d.buildPreEntry(play, set)

	// Pre-entry movement gate. Runs unconditionally before any filter
	// project and short-circuits on failure.
	if !preEntry.GatePassed {
		reason := domain.ReasonFallingPrice
		if preEntry.GatePctChange == nil {
			reason = domain.ReasonNoPriceData
		}
		return d.record(ctx, cand, positionID, play, preEntry, nil, domain.DecisionNOGO, reason)
	}

	if play.TimingConditions.Enabled() && !timingSatisfied(play, set) {
		return d.record(ctx, cand, positionID, play, preEntry, nil, domain.DecisionNOGO, domain.ReasonTimingWindow)
	}

	var projectResults []*domain.ProjectResult
	if play.PatternValidatorEnable {
		resolver := filter.NewFeatureResolver(set)
		selector := filter.SelectorFor(play, d.manual, d.aiManaged)
		passed, results, err := filter.Combine(ctx, play, resolver, selector)
		if err != nil {
			log.Error().Err(err).Int64("play", play.PlayID).Msg("project selection failed")
			return d.record(ctx, cand, positionID, play, preEntry, nil, domain.DecisionNOGO, domain.ReasonConfigMissing)
		}
		projectResults = results
		if !passed {
			return d.record(ctx, cand, positionID, play, preEntry, results, domain.DecisionNOGO, domain.ReasonFilterRejected)
		}
	}

	if !d.bundler.Observe(play.BundleTrades, cand) {
		return d.record(ctx, cand, positionID, play, preEntry, projectResults, domain.DecisionNOGO, domain.ReasonBundleUnmet)
	}

	if !d.cycles.TryAdmit(play.PlayID, play.MaxBuysPerCycle) {
		return d.record(ctx, cand, positionID, play, preEntry, projectResults, domain.DecisionNOGO, domain.ReasonCycleLimit)
	}

	outcome, err := d.record(ctx, cand, positionID, play, preEntry, projectResults, domain.DecisionGO, "")
	if err != nil {
		// The slot was consumed speculatively; give it back so the
		// caller's retry is not charged twice.
		d.cycles.Release(play.PlayID)
		return nil, err
	}
	return outcome, nil
}

// buildPreEntry assembles the gate evidence. The gate reads the
// longest configured window; when that window is unresolved the play's
// missing-data policy decides. A change exactly equal to the threshold
// passes. For short plays the sign is inverted: falling prices are the
// favorable direction.
func (d *Decider) buildPreEntry(play *domain.Play, set *domain.FeatureSet) *domain.PreEntryMetrics {
	windows := d.extractor.Windows()
	gateWindow := 0
	if len(windows) > 0 {
		gateWindow = windows[len(windows)-1]
	}

	pre := &domain.PreEntryMetrics{
		Windows:           set.Windows,
		Trend:             set.Trend,
		GateWindowMinutes: gateWindow,
		GateThresholdPct:  play.EntryGate.MinChangePct,
	}

	fw := set.Window(gateWindow)
	if fw == nil || fw.PctChange == nil {
		pre.GatePassed = play.EntryGate.OnMissing != domain.GateRejectOnMissing
		return pre
	}

	pre.GatePctChange = fw.PctChange
	change := *fw.PctChange
	if play.ShortPlay {
		change = -change
	}
	pre.GatePassed = change >= play.EntryGate.MinChangePct
	return pre
}

// timingSatisfied checks the optional timing gate: required direction
// over the configured window. An unresolved window does not block.
func timingSatisfied(play *domain.Play, set *domain.FeatureSet) bool {
	fw := set.Window(play.TimingConditions.WindowMinutes)
	if fw == nil || fw.PctChange == nil {
		return true
	}
	switch play.TimingConditions.RequireTrend {
	case domain.TrendRising:
		return *fw.PctChange > 0
	case domain.TrendFalling:
		return *fw.PctChange < 0
	default:
		return true
	}
}

// record writes the terminal position and audit record. Duplicate-key
// errors mean a concurrent or earlier attempt already recorded this
// outcome; the write is treated as settled.
func (d *Decider) record(
	ctx context.Context,
	cand *domain.Candidate,
	positionID string,
	play *domain.Play,
	preEntry *domain.PreEntryMetrics,
	projectResults []*domain.ProjectResult,
	decision domain.Decision,
	reason string,
) (*Outcome, error) {
	status := domain.StatusPending
	if decision == domain.DecisionNOGO {
		status = domain.StatusNoGo
	}

	shortPlay := false
	if play != nil {
		shortPlay = play.ShortPlay
	}

	position := &domain.Position{
		PositionID:    positionID,
		PlayID:        cand.PlayID,
		WalletAddress: cand.WalletAddress,
		AssetID:       cand.AssetID,
		ShortPlay:     shortPlay,
		EntryPrice:    cand.ObservedPrice,
		EntryTimeMs:   cand.ObservedTimeMs,
		Status:        status,
	}

	audit := &domain.AuditRecord{
		AuditID:        idhash.ComputeAuditID(positionID, string(decision)),
		PositionID:     positionID,
		PlayID:         cand.PlayID,
		WalletAddress:  cand.WalletAddress,
		AssetID:        cand.AssetID,
		ObservedTimeMs: cand.ObservedTimeMs,
		PreEntry:       preEntry,
		ProjectResults: projectResults,
		FinalDecision:  decision,
		Reason:         reason,
	}

	if err := d.positions.Insert(ctx, position); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("record position %s: %w", positionID, err)
	}
	if err := d.audits.Insert(ctx, audit); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("record audit for %s: %w", positionID, err)
	}

	log.Info().
		Str("position", positionID).
		Int64("play", cand.PlayID).
		Str("decision", string(decision)).
		Str("reason", reason).
		Msg("admission decided")

	return &Outcome{Decision: decision, Reason: reason, Position: position, Audit: audit}, nil
}
