// Package features computes pre-entry price movement features for
// candidate evaluation. Features are derived from the price series at
// decision time and never stored independently.
package features

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/lookup"
	"wallet-follow-engine/internal/storage"
)

// DefaultWindows are the lookback offsets evaluated per candidate.
var DefaultWindows = []int{1, 2, 3, 5, 10}

const (
	// DefaultToleranceMs is the matching tolerance around each
	// lookback target. The collector samples about once a minute, so
	// ±30s catches the intended sample without grabbing a neighbor.
	DefaultToleranceMs = 30_000

	// DefaultTrendThresholdPct is the minimum magnitude of change for
	// a window to count as directional.
	DefaultTrendThresholdPct = 0.05
)

// Extractor computes FeatureSets from the price series.
type Extractor struct {
	prices            storage.PriceSeriesStore
	windows           []int // lookback minutes, ascending
	toleranceMs       int64
	trendThresholdPct float64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWindows overrides the lookback window set.
func WithWindows(minutes []int) Option {
	return func(e *Extractor) {
		e.windows = append([]int(nil), minutes...)
		sort.Ints(e.windows)
	}
}

// WithTolerance overrides the sample matching tolerance.
func WithTolerance(toleranceMs int64) Option {
	return func(e *Extractor) { e.toleranceMs = toleranceMs }
}

// WithTrendThreshold overrides the trend classification threshold.
func WithTrendThreshold(pct float64) Option {
	return func(e *Extractor) { e.trendThresholdPct = pct }
}

// NewExtractor creates an Extractor reading from the given store.
func NewExtractor(prices storage.PriceSeriesStore, opts ...Option) *Extractor {
	e := &Extractor{
		prices:            prices,
		windows:           append([]int(nil), DefaultWindows...),
		toleranceMs:       DefaultToleranceMs,
		trendThresholdPct: DefaultTrendThresholdPct,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Windows returns the configured lookback minutes, ascending.
func (e *Extractor) Windows() []int {
	return append([]int(nil), e.windows...)
}

// Extract computes the feature set for a candidate entry. Missing
// samples yield nil for that window only; partial results are valid.
// A store read failure is logged and surfaced as a fully unresolved
// feature set, never as an error: the admission decision must always
// reach a terminal verdict.
func (e *Extractor) Extract(ctx context.Context, assetID string, entryTimeMs int64, entryPrice float64) *domain.FeatureSet {
	set := &domain.FeatureSet{
		AssetID:     assetID,
		EntryTimeMs: entryTimeMs,
		EntryPrice:  entryPrice,
		Trend:       domain.TrendUnknown,
	}
	for _, w := range e.windows {
		set.Windows = append(set.Windows, &domain.FeatureWindow{WindowMinutes: w})
	}
	if len(e.windows) == 0 {
		return set
	}

	longest := e.windows[len(e.windows)-1]
	start := entryTimeMs - int64(longest)*60_000 - e.toleranceMs
	end := entryTimeMs

	points, err := e.prices.GetByTimeRange(ctx, assetID, start, end)
	if err != nil {
		log.Warn().Err(err).Str("asset", assetID).Msg("price series read failed, features unresolved")
		return set
	}

	for _, fw := range set.Windows {
		target := entryTimeMs - int64(fw.WindowMinutes)*60_000
		sample, err := lookup.PriceNear(target, e.toleranceMs, points)
		if err != nil {
			if !errors.Is(err, lookup.ErrNoPriceData) && !errors.Is(err, lookup.ErrNoSampleNear) {
				log.Warn().Err(err).Int("window", fw.WindowMinutes).Msg("window lookup failed")
			}
			continue
		}
		if sample.Price == 0 {
			continue
		}
		priceThen := sample.Price
		pct := (entryPrice - priceThen) / priceThen * 100
		fw.PriceThen = &priceThen
		fw.PctChange = &pct
	}

	set.Trend = e.classifyTrend(set)
	return set
}

// classifyTrend labels the pre-entry movement. Rising requires both
// the shortest window and the longest resolved window to exceed the
// threshold; falling mirrors that on the downside.
func (e *Extractor) classifyTrend(set *domain.FeatureSet) domain.Trend {
	longest := set.LongestResolved()
	if longest == nil {
		return domain.TrendUnknown
	}

	shortest := longest
	for _, w := range set.Windows {
		if w.PctChange != nil {
			shortest = w
			break
		}
	}

	short, long := *shortest.PctChange, *longest.PctChange
	switch {
	case short > e.trendThresholdPct && long > e.trendThresholdPct:
		return domain.TrendRising
	case short < -e.trendThresholdPct && long < -e.trendThresholdPct:
		return domain.TrendFalling
	default:
		return domain.TrendFlat
	}
}
