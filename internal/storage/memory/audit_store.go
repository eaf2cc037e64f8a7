package memory

import (
	"context"
	"sync"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// AuditStore is an in-memory implementation of storage.AuditStore.
// Records are write-once.
type AuditStore struct {
	mu         sync.RWMutex
	data       map[string]*domain.AuditRecord // keyed by audit_id
	byPosition map[string]string              // position_id -> audit_id
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		data:       make(map[string]*domain.AuditRecord),
		byPosition: make(map[string]string),
	}
}

// Insert adds a new audit record. Returns ErrDuplicateKey if audit_id exists.
func (s *AuditStore) Insert(_ context.Context, rec *domain.AuditRecord) error {
	if rec == nil || rec.AuditID == "" || rec.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.AuditID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[rec.AuditID] = copyAudit(rec)
	s.byPosition[rec.PositionID] = rec.AuditID
	return nil
}

// GetByPositionID retrieves the audit record attached to a position.
func (s *AuditStore) GetByPositionID(_ context.Context, positionID string) (*domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auditID, exists := s.byPosition[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyAudit(s.data[auditID]), nil
}

func copyAudit(rec *domain.AuditRecord) *domain.AuditRecord {
	cp := *rec
	if rec.PreEntry != nil {
		pe := *rec.PreEntry
		pe.Windows = copyWindows(rec.PreEntry.Windows)
		cp.PreEntry = &pe
	}
	cp.ProjectResults = make([]*domain.ProjectResult, len(rec.ProjectResults))
	for i, pr := range rec.ProjectResults {
		prc := *pr
		prc.FilterResults = make([]*domain.FilterResult, len(pr.FilterResults))
		for j, fr := range pr.FilterResults {
			frc := *fr
			prc.FilterResults[j] = &frc
		}
		cp.ProjectResults[i] = &prc
	}
	return &cp
}

func copyWindows(windows []*domain.FeatureWindow) []*domain.FeatureWindow {
	out := make([]*domain.FeatureWindow, len(windows))
	for i, w := range windows {
		wc := *w
		out[i] = &wc
	}
	return out
}

var _ storage.AuditStore = (*AuditStore)(nil)
