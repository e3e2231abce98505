package service

// FeasibilityVerdict is the structured result of a feasibility check,
// returned to the caller both to reject impossible plans and to guide
// compression when the plan is merely overloaded.
type FeasibilityVerdict struct {
	TotalRequiredHours  float64
	MinRequiredHours    float64
	TotalAvailableHours float64
	CoverageRatio       float64
	Feasible            bool
	Overloaded          bool
	ShortfallHours      float64
}

// FeasibilityService computes required-vs-available study hours ahead of
// scheduling. It holds no state and makes no I/O calls.
type FeasibilityService struct{}

// NewFeasibilityService constructs a feasibility analyzer.
func NewFeasibilityService() *FeasibilityService {
	return &FeasibilityService{}
}

// Analyze computes the feasibility verdict for the given pending-topic
// estimated hours, the number of eligible dates, and the daily capacity.
func (s *FeasibilityService) Analyze(estimatedHours []float64, eligibleDateCount int, dailyCapacity float64) FeasibilityVerdict {
	var totalRequired float64
	for _, h := range estimatedHours {
		totalRequired += h
	}

	minRequired := float64(len(estimatedHours)) * 0.25
	totalAvailable := float64(eligibleDateCount) * dailyCapacity

	coverageRatio := 1.0
	if totalRequired > 0 {
		coverageRatio = totalAvailable / totalRequired
	}

	feasible := totalAvailable >= minRequired
	shortfall := 0.0
	if !feasible {
		shortfall = minRequired - totalAvailable
	}

	return FeasibilityVerdict{
		TotalRequiredHours:  totalRequired,
		MinRequiredHours:    minRequired,
		TotalAvailableHours: totalAvailable,
		CoverageRatio:       coverageRatio,
		Feasible:            feasible,
		Overloaded:          feasible && coverageRatio < 1,
		ShortfallHours:      shortfall,
	}
}

// Suggestions returns human-readable remediation text for an infeasible verdict.
func (s *FeasibilityService) Suggestions(v FeasibilityVerdict) []string {
	if v.Feasible {
		return nil
	}
	return []string{
		"reduce the number of topics in this plan",
		"extend the planning horizon (move the exam date out or add eligible days)",
		"increase the daily study-hour capacity",
	}
}
