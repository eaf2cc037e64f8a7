package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// AuditStore implements storage.AuditStore using PostgreSQL. The
// variable-shape evidence (pre-entry metrics, per-project results)
// lives in JSONB columns; the identity and verdict fields are plain
// columns for querying.
type AuditStore struct {
	pool *Pool
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(pool *Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// Insert adds a new audit record. Returns ErrDuplicateKey if audit_id
// exists.
func (s *AuditStore) Insert(ctx context.Context, rec *domain.AuditRecord) error {
	preEntry, err := json.Marshal(rec.PreEntry)
	if err != nil {
		return fmt.Errorf("encode pre-entry metrics: %w", err)
	}
	projectResults, err := json.Marshal(rec.ProjectResults)
	if err != nil {
		return fmt.Errorf("encode project results: %w", err)
	}

	query := `
		INSERT INTO pattern_validator_log (
			audit_id, position_id, play_id, wallet_address, asset_id,
			observed_time_ms, pre_entry_metrics, project_results,
			final_decision, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		rec.AuditID,
		rec.PositionID,
		rec.PlayID,
		rec.WalletAddress,
		rec.AssetID,
		rec.ObservedTimeMs,
		preEntry,
		projectResults,
		string(rec.FinalDecision),
		rec.Reason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// GetByPositionID retrieves the audit record attached to a position.
func (s *AuditStore) GetByPositionID(ctx context.Context, positionID string) (*domain.AuditRecord, error) {
	query := `
		SELECT audit_id, position_id, play_id, wallet_address, asset_id,
		       observed_time_ms, pre_entry_metrics, project_results,
		       final_decision, reason
		FROM pattern_validator_log
		WHERE position_id = $1
	`

	var rec domain.AuditRecord
	var decision string
	var preEntry, projectResults []byte

	err := s.pool.QueryRow(ctx, query, positionID).Scan(
		&rec.AuditID,
		&rec.PositionID,
		&rec.PlayID,
		&rec.WalletAddress,
		&rec.AssetID,
		&rec.ObservedTimeMs,
		&preEntry,
		&projectResults,
		&decision,
		&rec.Reason,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get audit by position id: %w", err)
	}

	rec.FinalDecision = domain.Decision(decision)
	if err := json.Unmarshal(preEntry, &rec.PreEntry); err != nil {
		return nil, fmt.Errorf("decode pre-entry metrics: %w", err)
	}
	if err := json.Unmarshal(projectResults, &rec.ProjectResults); err != nil {
		return nil, fmt.Errorf("decode project results: %w", err)
	}
	return &rec, nil
}
