package filter

import (
	"context"
	"fmt"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

// ProjectRanker supplies an externally optimized project subset for
// plays with AI-managed selection.
type ProjectRanker interface {
	// RankProjects returns project ids in ranked order for the play.
	RankProjects(ctx context.Context, playID int64) ([]int64, error)
}

// ProjectSelector resolves which filter projects apply to a play.
// Resolved once per decision, not per rule.
type ProjectSelector interface {
	Select(ctx context.Context, play *domain.Play) ([]*domain.FilterProject, error)
}

// ManualSelector uses the play's configured project ids.
type ManualSelector struct {
	projects storage.FilterProjectStore
}

// NewManualSelector creates a selector over the project store.
func NewManualSelector(projects storage.FilterProjectStore) *ManualSelector {
	return &ManualSelector{projects: projects}
}

// Select implements ProjectSelector.
func (s *ManualSelector) Select(ctx context.Context, play *domain.Play) ([]*domain.FilterProject, error) {
	return s.projects.GetByIDs(ctx, play.ProjectIDs)
}

// AIManagedSelector substitutes the manually configured project list
// with the ranker's subset.
type AIManagedSelector struct {
	ranker   ProjectRanker
	projects storage.FilterProjectStore
}

// NewAIManagedSelector creates a selector driven by the ranker.
func NewAIManagedSelector(ranker ProjectRanker, projects storage.FilterProjectStore) *AIManagedSelector {
	return &AIManagedSelector{ranker: ranker, projects: projects}
}

// Select implements ProjectSelector.
func (s *AIManagedSelector) Select(ctx context.Context, play *domain.Play) ([]*domain.FilterProject, error) {
	ids, err := s.ranker.RankProjects(ctx, play.PlayID)
	if err != nil {
		return nil, fmt.Errorf("rank projects for play %d: %w", play.PlayID, err)
	}
	return s.projects.GetByIDs(ctx, ids)
}

// SelectorFor returns the selector matching the play's selection mode.
func SelectorFor(play *domain.Play, manual *ManualSelector, aiManaged *AIManagedSelector) ProjectSelector {
	if play.SelectionMode == domain.SelectionAIManaged && aiManaged != nil {
		return aiManaged
	}
	return manual
}

// Combine evaluates all selected projects and combines their verdicts
// per the play's combine mode: ANY (one fully passing project admits,
// the default) or ALL. An empty selection passes: a play without
// projects has its pattern validator effectively disabled.
func Combine(ctx context.Context, play *domain.Play, resolver ValueResolver, selector ProjectSelector) (bool, []*domain.ProjectResult, error) {
	projects, err := selector.Select(ctx, play)
	if err != nil {
		return false, nil, err
	}

	if len(projects) == 0 {
		return true, nil, nil
	}

	results := make([]*domain.ProjectResult, 0, len(projects))
	anyPassed := false
	allPassed := true
	for _, project := range projects {
		pr := EvaluateProject(project, resolver)
		results = append(results, pr)
		if pr.Decision == domain.DecisionGO {
			anyPassed = true
		} else {
			allPassed = false
		}
	}

	if play.FilterCombine == domain.CombineAll {
		return allPassed, results, nil
	}
	return anyPassed, results, nil
}
