package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
type PriceSeriesStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PricePoint // keyed by asset_id, sorted by timestamp ASC
	keys map[string]struct{}             // (asset_id|timestamp_ms) dedup keys
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		data: make(map[string][]*domain.PricePoint),
		keys: make(map[string]struct{}),
	}
}

func pointKey(p *domain.PricePoint) string {
	return fmt.Sprintf("%s|%d", p.AssetID, p.TimestampMs)
}

// InsertBulk adds multiple points. Fails entire batch on any duplicate.
func (s *PriceSeriesStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.AssetID == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		copy := *p
		s.data[p.AssetID] = append(s.data[p.AssetID], &copy)
		s.keys[pointKey(p)] = struct{}{}
	}
	for asset := range s.data {
		sort.Slice(s.data[asset], func(i, j int) bool {
			return s.data[asset][i].TimestampMs < s.data[asset][j].TimestampMs
		})
	}

	return nil
}

// GetByTimeRange retrieves points within [start, end] inclusive, ordered ASC.
func (s *PriceSeriesStore) GetByTimeRange(_ context.Context, assetID string, start, end int64) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.data[assetID] {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	return result, nil
}

var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)
