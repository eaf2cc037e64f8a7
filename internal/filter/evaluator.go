package filter

import (
	"wallet-follow-engine/internal/domain"
)

// EvaluateRule checks one bound rule against the resolver. An
// unresolved field fails the rule (fail-closed per rule) with an error
// annotation instead of raising.
func EvaluateRule(rule *domain.FilterRule, resolver ValueResolver) *domain.FilterResult {
	result := &domain.FilterResult{
		FilterName: rule.Name,
		Field:      rule.Field,
		Minute:     rule.Minute,
		FromValue:  rule.MinBound,
		ToValue:    rule.MaxBound,
	}

	actual, err := resolver.Resolve(rule.Field, rule.Minute)
	if err != nil {
		result.Passed = false
		result.Error = err.Error()
		return result
	}

	result.ActualValue = &actual
	result.Passed = (rule.MinBound == nil || actual >= *rule.MinBound) &&
		(rule.MaxBound == nil || actual <= *rule.MaxBound)
	return result
}

// EvaluateProject evaluates all active rules of a project in order.
// The project verdict is the logical AND of its rules.
func EvaluateProject(project *domain.FilterProject, resolver ValueResolver) *domain.ProjectResult {
	result := &domain.ProjectResult{
		ProjectID:   project.ProjectID,
		ProjectName: project.Name,
		Decision:    domain.DecisionGO,
	}

	for _, rule := range project.ActiveRules() {
		fr := EvaluateRule(rule, resolver)
		result.FilterResults = append(result.FilterResults, fr)
		if !fr.Passed {
			result.Decision = domain.DecisionNOGO
			// Keep evaluating: the audit record carries every rule's
			// evidence even after the verdict is settled.
		}
	}

	return result
}
