package lookup

import (
	"errors"

	"wallet-follow-engine/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoPriceData  = errors.New("no price data available")
	ErrNoSampleNear = errors.New("no price sample within tolerance")
)

// PriceAt returns price at or before target timestamp.
// If no sample exists before target, returns the first available price.
// Returns ErrNoPriceData if the slice is empty.
func PriceAt(target int64, points []*domain.PricePoint) (float64, error) {
	if len(points) == 0 {
		return 0, ErrNoPriceData
	}

	// Find closest price at or before target
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].TimestampMs <= target {
			return points[i].Price, nil
		}
	}

	return points[0].Price, nil
}

// PriceNear returns the sample closest to target within ±toleranceMs.
// Price series are sparse; a lookback window only resolves when a
// sample landed close enough to the requested offset.
// Returns ErrNoPriceData for an empty slice and ErrNoSampleNear when
// no sample falls inside the tolerance window.
func PriceNear(target, toleranceMs int64, points []*domain.PricePoint) (*domain.PricePoint, error) {
	if len(points) == 0 {
		return nil, ErrNoPriceData
	}

	var best *domain.PricePoint
	var bestDist int64
	for _, p := range points {
		dist := p.TimestampMs - target
		if dist < 0 {
			dist = -dist
		}
		if dist > toleranceMs {
			continue
		}
		if best == nil || dist < bestDist {
			best = p
			bestDist = dist
		}
	}

	if best == nil {
		return nil, ErrNoSampleNear
	}
	return best, nil
}
