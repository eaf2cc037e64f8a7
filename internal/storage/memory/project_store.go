package memory

import (
	"context"
	"sync"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// FilterProjectStore is an in-memory implementation of
// storage.FilterProjectStore.
type FilterProjectStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.FilterProject
}

// NewFilterProjectStore creates a new in-memory filter project store.
func NewFilterProjectStore() *FilterProjectStore {
	return &FilterProjectStore{
		data: make(map[int64]*domain.FilterProject),
	}
}

// Put inserts or replaces a project.
func (s *FilterProjectStore) Put(_ context.Context, p *domain.FilterProject) error {
	if p == nil || p.ProjectID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[p.ProjectID] = copyProject(p)
	return nil
}

// GetByID retrieves a project by its ID. Returns ErrNotFound if not exists.
func (s *FilterProjectStore) GetByID(_ context.Context, projectID int64) (*domain.FilterProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[projectID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyProject(p), nil
}

// GetByIDs retrieves projects by id, preserving the given order.
// Missing or inactive projects are skipped.
func (s *FilterProjectStore) GetByIDs(_ context.Context, projectIDs []int64) ([]*domain.FilterProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FilterProject
	for _, id := range projectIDs {
		p, exists := s.data[id]
		if !exists || !p.Active {
			continue
		}
		result = append(result, copyProject(p))
	}

	return result, nil
}

func copyProject(p *domain.FilterProject) *domain.FilterProject {
	cp := *p
	cp.Rules = make([]*domain.FilterRule, len(p.Rules))
	for i, r := range p.Rules {
		rc := *r
		cp.Rules[i] = &rc
	}
	return &cp
}

var _ storage.FilterProjectStore = (*FilterProjectStore)(nil)
