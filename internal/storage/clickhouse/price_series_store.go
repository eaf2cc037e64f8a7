package clickhouse

import (
	"context"
	"fmt"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using
// ClickHouse. MergeTree doesn't enforce uniqueness at insert time, so
// duplicate (asset_id, timestamp_ms) keys are checked explicitly
// before the batch goes out.
type PriceSeriesStore struct {
	conn *Conn
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	return &PriceSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds multiple points. Fails the entire batch on duplicate
// (asset_id, timestamp_ms).
func (s *PriceSeriesStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		assetID     string
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		k := key{p.AssetID, p.TimestampMs}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.AssetID, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_series (asset_id, timestamp_ms, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.AssetID, uint64(p.TimestampMs), p.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves points for an asset within [start, end]
// (inclusive), ordered by timestamp ASC.
func (s *PriceSeriesStore) GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.PricePoint, error) {
	query := `
		SELECT asset_id, timestamp_ms, price
		FROM price_series
		WHERE asset_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, assetID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query price series by time range: %w", err)
	}
	defer rows.Close()

	var points []*domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		var timestampMs uint64
		if err := rows.Scan(&p.AssetID, &timestampMs, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price series row: %w", err)
		}
		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price series rows: %w", err)
	}
	return points, nil
}

// exists checks if a point with the given key exists.
func (s *PriceSeriesStore) exists(ctx context.Context, assetID string, timestampMs int64) (bool, error) {
	query := `SELECT count(*) FROM price_series WHERE asset_id = ? AND timestamp_ms = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, assetID, uint64(timestampMs)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
