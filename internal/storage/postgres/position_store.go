package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id, play_id, wallet_address, asset_id, short_play,
	our_entry_price, followed_at,
	our_exit_price, our_exit_timestamp,
	our_status, exit_reason, our_profit_loss, potential_gains
`

// Insert adds a new position. Returns ErrDuplicateKey if position_id
// exists; admission relies on this for idempotence.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID,
		p.PlayID,
		p.WalletAddress,
		p.AssetID,
		p.ShortPlay,
		p.EntryPrice,
		p.EntryTimeMs,
		p.ExitPrice,
		p.ExitTimeMs,
		string(p.Status),
		p.ExitReason,
		p.ProfitLossPct,
		p.PotentialGains,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, positionID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetOpenByAsset retrieves pending positions for an asset.
func (s *PositionStore) GetOpenByAsset(ctx context.Context, assetID string) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE asset_id = $1 AND our_status = $2
		ORDER BY followed_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, assetID, string(domain.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("get open positions by asset: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetByPlay retrieves all positions for a play, ordered by entry time ASC.
func (s *PositionStore) GetByPlay(ctx context.Context, playID int64) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE play_id = $1
		ORDER BY followed_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, playID)
	if err != nil {
		return nil, fmt.Errorf("get positions by play: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// MarkClosed persists the terminal state of a position. The update only
// touches pending rows, so a retry after a crash cannot resurrect or
// overwrite an already archived position. A retry carrying the same
// terminal status is a no-op; a conflicting terminal status is
// ErrInvalidInput.
func (s *PositionStore) MarkClosed(ctx context.Context, p *domain.Position) error {
	if !p.Status.Terminal() {
		return fmt.Errorf("mark closed %s: status %q is not terminal: %w", p.PositionID, p.Status, storage.ErrInvalidInput)
	}

	query := `
		UPDATE positions
		SET our_exit_price = $2,
		    our_exit_timestamp = $3,
		    our_status = $4,
		    exit_reason = $5,
		    our_profit_loss = $6,
		    potential_gains = $7
		WHERE position_id = $1 AND our_status = $8
	`

	tag, err := s.pool.Exec(ctx, query,
		p.PositionID,
		p.ExitPrice,
		p.ExitTimeMs,
		string(p.Status),
		p.ExitReason,
		p.ProfitLossPct,
		p.PotentialGains,
		string(domain.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("mark position closed: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	existing, err := s.GetByID(ctx, p.PositionID)
	if err != nil {
		return err
	}
	if existing.Status == p.Status {
		return nil // retry of an already applied close
	}
	return fmt.Errorf("mark closed %s: already %q: %w", p.PositionID, existing.Status, storage.ErrInvalidInput)
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var status string

	err := row.Scan(
		&p.PositionID,
		&p.PlayID,
		&p.WalletAddress,
		&p.AssetID,
		&p.ShortPlay,
		&p.EntryPrice,
		&p.EntryTimeMs,
		&p.ExitPrice,
		&p.ExitTimeMs,
		&status,
		&p.ExitReason,
		&p.ProfitLossPct,
		&p.PotentialGains,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PositionStatus(status)
	return &p, nil
}

func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}
