package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/playconfig"
	"wallet-follow-engine/internal/storage"
)

// PlayStore implements storage.PlayStore using PostgreSQL. The
// JSON-typed columns decode through playconfig; a malformed blob
// disables that feature rather than failing the play load.
type PlayStore struct {
	pool *Pool
}

// NewPlayStore creates a new PlayStore.
func NewPlayStore(pool *Pool) *PlayStore {
	return &PlayStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PlayStore = (*PlayStore)(nil)

const playColumns = `
	play_id, name, wallet_query,
	sell_logic, trigger_on_perp, timing_conditions, bundle_trades, cache_wallets, entry_gate,
	pattern_validator_enable, pattern_update_by_ai, project_ids, filter_combine,
	max_buys_per_cycle, short_play
`

// GetByID retrieves a play by its ID. Returns ErrNotFound if not exists.
func (s *PlayStore) GetByID(ctx context.Context, playID int64) (*domain.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE play_id = $1`

	row := s.pool.QueryRow(ctx, query, playID)
	play, err := scanPlay(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get play by id: %w", err)
	}
	return play, nil
}

// GetActive retrieves all active plays ordered by play_id ASC.
func (s *PlayStore) GetActive(ctx context.Context) ([]*domain.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE active ORDER BY play_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active plays: %w", err)
	}
	defer rows.Close()

	var plays []*domain.Play
	for rows.Next() {
		play, err := scanPlay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan play row: %w", err)
		}
		plays = append(plays, play)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate play rows: %w", err)
	}
	return plays, nil
}

// scanPlay scans one row into a playconfig.Row and decodes it.
func scanPlay(row pgx.Row) (*domain.Play, error) {
	var r playconfig.Row
	var filterCombine *string

	err := row.Scan(
		&r.PlayID,
		&r.Name,
		&r.WalletQuery,
		&r.SellLogic,
		&r.TriggerOnPerp,
		&r.TimingConditions,
		&r.BundleTrades,
		&r.CacheWallets,
		&r.EntryGate,
		&r.PatternValidatorEnable,
		&r.PatternUpdateByAI,
		&r.ProjectIDs,
		&filterCombine,
		&r.MaxBuysPerCycle,
		&r.ShortPlay,
	)
	if err != nil {
		return nil, err
	}

	if filterCombine != nil {
		r.FilterCombine = *filterCombine
	}
	return playconfig.FromRow(&r), nil
}
