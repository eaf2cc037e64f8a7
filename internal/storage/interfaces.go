package storage

import (
	"context"

	"wallet-follow-engine/internal/domain"
)

// PriceSeriesStore provides access to price_series storage.
// The series is produced continuously by an external collector and may
// be sparse (gaps of minutes).
type PriceSeriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (asset_id, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetByTimeRange retrieves points for an asset within [start, end]
	// (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.PricePoint, error)
}

// PlayStore provides access to play configuration.
type PlayStore interface {
	// GetByID retrieves a play by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, playID int64) (*domain.Play, error)

	// GetActive retrieves all active plays.
	GetActive(ctx context.Context) ([]*domain.Play, error)
}

// FilterProjectStore provides access to filter project configuration.
type FilterProjectStore interface {
	// GetByID retrieves a project by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, projectID int64) (*domain.FilterProject, error)

	// GetByIDs retrieves projects by id, preserving the given order.
	// Missing or inactive projects are skipped, not an error.
	GetByIDs(ctx context.Context, projectIDs []int64) ([]*domain.FilterProject, error)
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if
	// position_id exists; admission relies on this for idempotence.
	Insert(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// GetOpenByAsset retrieves pending positions for an asset.
	GetOpenByAsset(ctx context.Context, assetID string) ([]*domain.Position, error)

	// GetByPlay retrieves all positions for a play, ordered by entry time ASC.
	GetByPlay(ctx context.Context, playID int64) ([]*domain.Position, error)

	// MarkClosed persists the terminal state of a position. The
	// position must carry a terminal status and exit fields. Safe to
	// retry; a retry must not resurrect an open position.
	MarkClosed(ctx context.Context, p *domain.Position) error
}

// AuditStore provides access to pattern_validator_log storage.
// Records are write-once.
type AuditStore interface {
	// Insert adds a new audit record. Returns ErrDuplicateKey if
	// audit_id exists.
	Insert(ctx context.Context, rec *domain.AuditRecord) error

	// GetByPositionID retrieves the audit record attached to a position.
	GetByPositionID(ctx context.Context, positionID string) (*domain.AuditRecord, error)
}
