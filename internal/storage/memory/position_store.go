package memory

import (
	"context"
	"sort"
	"sync"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.PositionID] = &copy
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// GetOpenByAsset retrieves pending positions for an asset, ordered by
// entry time ASC.
func (s *PositionStore) GetOpenByAsset(_ context.Context, assetID string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.AssetID == assetID && p.Status == domain.StatusPending {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EntryTimeMs < result[j].EntryTimeMs
	})

	return result, nil
}

// GetByPlay retrieves all positions for a play, ordered by entry time ASC.
func (s *PositionStore) GetByPlay(_ context.Context, playID int64) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.PlayID == playID {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EntryTimeMs < result[j].EntryTimeMs
	})

	return result, nil
}

// MarkClosed persists the terminal state of a position. Retries are
// safe: closing an already-closed position with the same terminal
// status is a no-op.
func (s *PositionStore) MarkClosed(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}
	if !p.Status.Terminal() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[p.PositionID]
	if !exists {
		return storage.ErrNotFound
	}
	if existing.Status.Terminal() && existing.Status != p.Status {
		return storage.ErrInvalidInput
	}

	copy := *p
	s.data[p.PositionID] = &copy
	return nil
}

var _ storage.PositionStore = (*PositionStore)(nil)
