package postgres

import (
	"context"
	"fmt"
)

// WalletQueryRunner executes a play's wallet-selection query. The query
// text is stored on the play and treated as opaque SQL returning a
// single wallet-address column.
type WalletQueryRunner struct {
	pool *Pool
}

// NewWalletQueryRunner creates a runner backed by the given pool.
func NewWalletQueryRunner(pool *Pool) *WalletQueryRunner {
	return &WalletQueryRunner{pool: pool}
}

// Run executes the query and collects wallet addresses.
func (r *WalletQueryRunner) Run(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("wallet query: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var wallet string
		if err := rows.Scan(&wallet); err != nil {
			return nil, fmt.Errorf("wallet query scan: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}
