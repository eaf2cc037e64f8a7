package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// FilterProjectStore implements storage.FilterProjectStore using
// PostgreSQL. Projects and their rules live in filter_projects and
// filter_rules.
type FilterProjectStore struct {
	pool *Pool
}

// NewFilterProjectStore creates a new FilterProjectStore.
func NewFilterProjectStore(pool *Pool) *FilterProjectStore {
	return &FilterProjectStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FilterProjectStore = (*FilterProjectStore)(nil)

// GetByID retrieves a project with its rules. Returns ErrNotFound if
// not exists.
func (s *FilterProjectStore) GetByID(ctx context.Context, projectID int64) (*domain.FilterProject, error) {
	query := `
		SELECT project_id, name, active
		FROM filter_projects
		WHERE project_id = $1
	`

	var p domain.FilterProject
	err := s.pool.QueryRow(ctx, query, projectID).Scan(&p.ProjectID, &p.Name, &p.Active)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get project by id: %w", err)
	}

	rules, err := s.loadRules(ctx, projectID)
	if err != nil {
		return nil, err
	}
	p.Rules = rules
	return &p, nil
}

// GetByIDs retrieves projects by id, preserving the given order.
// Missing or inactive projects are skipped, not an error.
func (s *FilterProjectStore) GetByIDs(ctx context.Context, projectIDs []int64) ([]*domain.FilterProject, error) {
	var projects []*domain.FilterProject
	for _, id := range projectIDs {
		p, err := s.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !p.Active {
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// loadRules retrieves a project's rules ordered by rule_id ASC.
func (s *FilterProjectStore) loadRules(ctx context.Context, projectID int64) ([]*domain.FilterRule, error) {
	query := `
		SELECT name, field, minute, min_bound, max_bound, active
		FROM filter_rules
		WHERE project_id = $1
		ORDER BY rule_id ASC
	`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("get rules for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var rules []*domain.FilterRule
	for rows.Next() {
		var r domain.FilterRule
		if err := rows.Scan(&r.Name, &r.Field, &r.Minute, &r.MinBound, &r.MaxBound, &r.Active); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		rules = append(rules, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule rows: %w", err)
	}
	return rules, nil
}
