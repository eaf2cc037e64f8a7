package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wallet-follow-engine/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func featureSet(changes map[int]float64) *domain.FeatureSet {
	set := &domain.FeatureSet{EntryPrice: 100.0}
	for _, m := range []int{1, 2, 3, 5, 10} {
		fw := &domain.FeatureWindow{WindowMinutes: m}
		if pct, ok := changes[m]; ok {
			price := 100.0 / (1 + pct/100)
			fw.PctChange = fptr(pct)
			fw.PriceThen = fptr(price)
		}
		set.Windows = append(set.Windows, fw)
	}
	return set
}

func TestEvaluateRule_BothBounds(t *testing.T) {
	resolver := NewFeatureResolver(featureSet(map[int]float64{5: 1.5}))
	rule := &domain.FilterRule{
		Name: "mid-band", Field: FieldPriceChangePct, Minute: 5,
		MinBound: fptr(1.0), MaxBound: fptr(2.0), Active: true,
	}

	result := EvaluateRule(rule, resolver)

	require.True(t, result.Passed)
	require.NotNil(t, result.ActualValue)
	require.InDelta(t, 1.5, *result.ActualValue, 1e-9)
	require.Empty(t, result.Error)
}

func TestEvaluateRule_OpenEndedBounds(t *testing.T) {
	resolver := NewFeatureResolver(featureSet(map[int]float64{5: -3.0}))

	minOnly := &domain.FilterRule{Field: FieldPriceChangePct, Minute: 5, MinBound: fptr(-5.0), Active: true}
	require.True(t, EvaluateRule(minOnly, resolver).Passed)

	maxOnly := &domain.FilterRule{Field: FieldPriceChangePct, Minute: 5, MaxBound: fptr(-4.0), Active: true}
	require.False(t, EvaluateRule(maxOnly, resolver).Passed)
}

func TestEvaluateRule_BoundaryValuePasses(t *testing.T) {
	resolver := NewFeatureResolver(featureSet(map[int]float64{5: 1.0}))
	rule := &domain.FilterRule{Field: FieldPriceChangePct, Minute: 5, MinBound: fptr(1.0), Active: true}

	require.True(t, EvaluateRule(rule, resolver).Passed, "value equal to min bound must pass")
}

func TestEvaluateRule_UnresolvedFailsClosed(t *testing.T) {
	resolver := NewFeatureResolver(featureSet(nil))
	rule := &domain.FilterRule{Name: "r", Field: FieldPriceChangePct, Minute: 5, MinBound: fptr(0.0), Active: true}

	result := EvaluateRule(rule, resolver)

	require.False(t, result.Passed)
	require.Nil(t, result.ActualValue)
	require.NotEmpty(t, result.Error)
}

func TestEvaluateRule_UnknownField(t *testing.T) {
	resolver := NewFeatureResolver(featureSet(nil))
	rule := &domain.FilterRule{Field: "volume_spike", Minute: 1, Active: true}

	result := EvaluateRule(rule, resolver)

	require.False(t, result.Passed)
	require.Contains(t, result.Error, "unknown filter field")
}

func TestEvaluateProject_AndSemantics(t *testing.T) {
	resolver := NewFeatureResolver(featureSet(map[int]float64{1: 0.5, 5: 1.5}))
	project := &domain.FilterProject{
		ProjectID: 1, Name: "two-rule", Active: true,
		Rules: []*domain.FilterRule{
			{Name: "r1", Field: FieldPriceChangePct, Minute: 1, MinBound: fptr(0.0), Active: true},
			{Name: "r2", Field: FieldPriceChangePct, Minute: 5, MinBound: fptr(2.0), Active: true},
			{Name: "inactive", Field: "bogus", Minute: 1, Active: false},
		},
	}

	result := EvaluateProject(project, resolver)

	require.Equal(t, domain.DecisionNOGO, result.Decision)
	// Inactive rule skipped, both active rules recorded despite early failure
	require.Len(t, result.FilterResults, 2)
	require.True(t, result.FilterResults[0].Passed)
	require.False(t, result.FilterResults[1].Passed)
}

func TestEvaluateProject_AllPass(t *testing.T) {
	resolver := NewFeatureResolver(featureSet(map[int]float64{1: 0.5}))
	project := &domain.FilterProject{
		ProjectID: 1, Active: true,
		Rules: []*domain.FilterRule{
			{Name: "r1", Field: FieldPriceChangePct, Minute: 1, MinBound: fptr(0.0), MaxBound: fptr(1.0), Active: true},
			{Name: "r2", Field: FieldEntryPrice, MinBound: fptr(50.0), Active: true},
		},
	}

	result := EvaluateProject(project, resolver)

	require.Equal(t, domain.DecisionGO, result.Decision)
	require.Len(t, result.FilterResults, 2)
}

func TestFeatureResolver_PriceFields(t *testing.T) {
	resolver := NewFeatureResolver(featureSet(map[int]float64{5: 2.0}))

	entry, err := resolver.Resolve(FieldPrice, 0)
	require.NoError(t, err)
	require.Equal(t, 100.0, entry)

	then, err := resolver.Resolve(FieldPrice, 5)
	require.NoError(t, err)
	require.InDelta(t, 100.0/1.02, then, 1e-9)

	_, err = resolver.Resolve(FieldPrice, 3)
	require.ErrorIs(t, err, ErrWindowUnresolved)
}
