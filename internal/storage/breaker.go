package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"wallet-follow-engine/internal/domain"
)

// BreakerPriceSeries wraps a PriceSeriesStore behind a circuit breaker.
// A flapping price store must surface as "no data" to the admission
// decision instead of stalling every candidate on a dead backend.
type BreakerPriceSeries struct {
	inner PriceSeriesStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerPriceSeries wraps the store with default breaker settings:
// trip after 3 consecutive failures or a >5% failure rate over at
// least 20 requests, retry after 60s.
func NewBreakerPriceSeries(name string, inner PriceSeriesStore) *BreakerPriceSeries {
	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}

	return &BreakerPriceSeries{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

// InsertBulk passes writes through the breaker.
func (b *BreakerPriceSeries) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.InsertBulk(ctx, points)
	})
	return wrapBreakerErr(err)
}

// GetByTimeRange passes reads through the breaker. While the breaker
// is open, returns ErrUnavailable immediately.
func (b *BreakerPriceSeries) GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.PricePoint, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.GetByTimeRange(ctx, assetID, start, end)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return result.([]*domain.PricePoint), nil
}

func wrapBreakerErr(err error) error {
	switch err {
	case nil:
		return nil
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

var _ PriceSeriesStore = (*BreakerPriceSeries)(nil)
