package resolve

import (
	"errors"
	"fmt"
)

// Thresholds tune candidate selection. Distances are nautical miles.
type Thresholds struct {
	// ContinuityBudgetNM is the distance budget for a "from" endpoint
	// measured from the previous leg's destination.
	ContinuityBudgetNM float64 `mapstructure:"continuity_budget_nm"`
	// DistanceTolerance scales the budget when filtering candidates.
	DistanceTolerance float64 `mapstructure:"distance_tolerance"`
	// AmbiguityGapNM is the minimum lead of the top ranked candidate over
	// the runner-up for a Green result.
	AmbiguityGapNM float64 `mapstructure:"ambiguity_gap_nm"`
	// InheritThresholdNM is the jump from the previous destination beyond
	// which a "from" match is discarded in favour of that destination.
	InheritThresholdNM float64 `mapstructure:"inherit_threshold_nm"`
}

// DefaultThresholds returns the standard selection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ContinuityBudgetNM: 20,
		DistanceTolerance:  1.2,
		AmbiguityGapNM:     10,
		InheritThresholdNM: 30,
	}
}

// Validate checks that every threshold is positive.
func (t Thresholds) Validate() error {
	var errs []error
	check := func(name string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	check("continuity_budget_nm", t.ContinuityBudgetNM)
	check("distance_tolerance", t.DistanceTolerance)
	check("ambiguity_gap_nm", t.AmbiguityGapNM)
	check("inherit_threshold_nm", t.InheritThresholdNM)
	return errors.Join(errs...)
}

// withDefaults replaces every field that Validate would reject with its
// default value.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	fill := func(v *float64, def float64) {
		if !(*v > 0) {
			*v = def
		}
	}
	fill(&t.ContinuityBudgetNM, d.ContinuityBudgetNM)
	fill(&t.DistanceTolerance, d.DistanceTolerance)
	fill(&t.AmbiguityGapNM, d.AmbiguityGapNM)
	fill(&t.InheritThresholdNM, d.InheritThresholdNM)
	return t
}
