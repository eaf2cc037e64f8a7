// Package filter evaluates filter projects against pre-entry features.
// Rule evaluation is resolver-driven so new feature sources can be
// added without touching the combiner.
package filter

import (
	"errors"
	"fmt"

	"wallet-follow-engine/internal/domain"
)

// Resolver errors.
var (
	ErrUnknownField     = errors.New("unknown filter field")
	ErrWindowUnresolved = errors.New("window unresolved")
)

// Fields resolvable against a feature set.
const (
	FieldPriceChangePct = "price_change_pct" // pct change over the minute offset
	FieldPrice          = "price"            // price at the minute offset (0 = entry)
	FieldEntryPrice     = "entry_price"      // candidate entry price, offset ignored
)

// ValueResolver resolves a named, possibly time-offset field to a value.
type ValueResolver interface {
	Resolve(field string, minute int) (float64, error)
}

// FeatureResolver resolves fields against a computed FeatureSet and
// the raw candidate attributes.
type FeatureResolver struct {
	Set *domain.FeatureSet
}

// NewFeatureResolver creates a resolver over the given feature set.
func NewFeatureResolver(set *domain.FeatureSet) *FeatureResolver {
	return &FeatureResolver{Set: set}
}

// Resolve implements ValueResolver.
func (r *FeatureResolver) Resolve(field string, minute int) (float64, error) {
	switch field {
	case FieldEntryPrice:
		return r.Set.EntryPrice, nil

	case FieldPrice:
		if minute == 0 {
			return r.Set.EntryPrice, nil
		}
		w := r.Set.Window(minute)
		if w == nil || w.PriceThen == nil {
			return 0, fmt.Errorf("price at minute %d: %w", minute, ErrWindowUnresolved)
		}
		return *w.PriceThen, nil

	case FieldPriceChangePct:
		w := r.Set.Window(minute)
		if w == nil || w.PctChange == nil {
			return 0, fmt.Errorf("price_change_pct at minute %d: %w", minute, ErrWindowUnresolved)
		}
		return *w.PctChange, nil

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

var _ ValueResolver = (*FeatureResolver)(nil)
