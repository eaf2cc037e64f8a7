package domain

import (
	"errors"
	"fmt"
)

// Sell logic validation errors.
var (
	ErrTierRangeInverted = errors.New("increase tier range_from must be below range_to")
	ErrTierNotAscending  = errors.New("increase tiers must be ascending and non-overlapping")
	ErrNegativeTolerance = errors.New("tolerance percent must not be negative")
)

// IncreaseTier is one tolerance tier keyed by gain-above-entry range.
// The range is closed-open: a gain equal to RangeFrom belongs to this
// tier, a gain equal to RangeTo belongs to the next.
type IncreaseTier struct {
	RangeFromPct float64 // gain range start, percent above entry
	RangeToPct   float64 // gain range end (exclusive)
	TolerancePct float64 // allowed pullback from peak within this range
}

// SellLogic is the tolerance band configuration of a play: one flat
// decrease tolerance below entry plus ordered increase tiers above it.
// A zero-value SellLogic means the exit engine is disabled for the play.
type SellLogic struct {
	DecreaseTolerancePct float64
	IncreaseTiers        []*IncreaseTier // ascending, non-overlapping
}

// Enabled reports whether any exit rule is configured.
func (s *SellLogic) Enabled() bool {
	return s.DecreaseTolerancePct > 0 || len(s.IncreaseTiers) > 0
}

// Validate checks tier monotonicity. Overlapping or descending
// schedules are rejected at configuration time, not at tick time.
func (s *SellLogic) Validate() error {
	if s.DecreaseTolerancePct < 0 {
		return fmt.Errorf("decrease tolerance: %w", ErrNegativeTolerance)
	}

	prevTo := -1.0
	for i, tier := range s.IncreaseTiers {
		if tier.TolerancePct < 0 {
			return fmt.Errorf("tier %d: %w", i, ErrNegativeTolerance)
		}
		if tier.RangeFromPct >= tier.RangeToPct {
			return fmt.Errorf("tier %d [%g,%g): %w", i, tier.RangeFromPct, tier.RangeToPct, ErrTierRangeInverted)
		}
		if tier.RangeFromPct < prevTo {
			return fmt.Errorf("tier %d [%g,%g): %w", i, tier.RangeFromPct, tier.RangeToPct, ErrTierNotAscending)
		}
		prevTo = tier.RangeToPct
	}

	return nil
}

// TierFor returns the increase tier whose range contains the gain.
// A gain beyond the highest configured range falls back to the last
// tier, whose tolerance acts as the default ceiling.
// Returns nil when no tiers are configured or the gain is below the
// first tier's range.
func (s *SellLogic) TierFor(gainPct float64) *IncreaseTier {
	if len(s.IncreaseTiers) == 0 {
		return nil
	}
	for _, tier := range s.IncreaseTiers {
		if gainPct >= tier.RangeFromPct && gainPct < tier.RangeToPct {
			return tier
		}
	}
	last := s.IncreaseTiers[len(s.IncreaseTiers)-1]
	if gainPct >= last.RangeToPct {
		return last
	}
	return nil
}
