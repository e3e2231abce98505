package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeasibilityServiceAnalyzeFeasible(t *testing.T) {
	s := NewFeasibilityService()
	v := s.Analyze([]float64{2, 2, 2}, 10, 3)

	assert.True(t, v.Feasible)
	assert.Equal(t, 6.0, v.TotalRequiredHours)
	assert.Equal(t, 30.0, v.TotalAvailableHours)
	assert.Equal(t, 0.0, v.ShortfallHours)
}

func TestFeasibilityServiceAnalyzeInfeasible(t *testing.T) {
	s := NewFeasibilityService()
	// minRequired = 4 topics * 0.25h = 1h; totalAvailable = 0 eligible dates.
	v := s.Analyze([]float64{10, 10, 10, 10}, 0, 3)

	assert.False(t, v.Feasible)
	assert.Equal(t, 1.0, v.ShortfallHours)
}

func TestFeasibilityServiceAnalyzeOverloaded(t *testing.T) {
	s := NewFeasibilityService()
	// feasible (totalAvailable >= minRequired) but coverage < 1.
	v := s.Analyze([]float64{20, 20}, 5, 3)

	assert.True(t, v.Feasible)
	assert.True(t, v.Overloaded)
	assert.Less(t, v.CoverageRatio, 1.0)
}

func TestFeasibilityServiceSuggestionsOnlyForInfeasible(t *testing.T) {
	s := NewFeasibilityService()

	feasible := s.Analyze([]float64{1}, 10, 3)
	assert.Empty(t, s.Suggestions(feasible))

	infeasible := s.Analyze([]float64{10, 10, 10, 10}, 0, 3)
	assert.NotEmpty(t, s.Suggestions(infeasible))
}
