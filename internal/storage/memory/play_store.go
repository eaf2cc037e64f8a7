package memory

import (
	"context"
	"sort"
	"sync"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// PlayStore is an in-memory implementation of storage.PlayStore.
// Plays are seeded at construction or via Put; the engine only reads.
type PlayStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Play
}

// NewPlayStore creates a new in-memory play store.
func NewPlayStore() *PlayStore {
	return &PlayStore{
		data: make(map[int64]*domain.Play),
	}
}

// Put inserts or replaces a play. Sell logic is validated here so a
// broken tolerance schedule never reaches the exit engine.
func (s *PlayStore) Put(_ context.Context, p *domain.Play) error {
	if p == nil || p.PlayID == 0 {
		return storage.ErrInvalidInput
	}
	if err := p.SellLogic.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *p
	s.data[p.PlayID] = &copy
	return nil
}

// GetByID retrieves a play by its ID. Returns ErrNotFound if not exists.
func (s *PlayStore) GetByID(_ context.Context, playID int64) (*domain.Play, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[playID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// GetActive retrieves all plays, ordered by play id ASC.
func (s *PlayStore) GetActive(_ context.Context) ([]*domain.Play, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Play
	for _, p := range s.data {
		copy := *p
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PlayID < result[j].PlayID
	})

	return result, nil
}

var _ storage.PlayStore = (*PlayStore)(nil)
