package model

// RuleCategory is the closed set of exclusion rule categories. The category
// decides how a likely_met verdict is acted on, so the tie-break policy lives
// in the type system rather than in key-existence checks.
type RuleCategory string

const (
	// RuleBlocking rules eliminate a campus when likely met with sufficient
	// confidence. Plain exclusions, age and weight restrictions.
	RuleBlocking RuleCategory = "blocking"

	// RuleConditional rules never eliminate a campus on their own; they
	// surface as warnings unless strict mode is requested. Conditions and
	// clinical-team-decision items.
	RuleConditional RuleCategory = "conditional"

	// RuleAdvisoryAccept rules signal that the campus should accept the
	// patient. A department-level accept overrides a campus-level general
	// exclusion.
	RuleAdvisoryAccept RuleCategory = "advisory_accept"
)

// Rule is one exclusion criterion scoped to a campus and optionally to a
// department. Department is empty for campus-level general exclusions.
type Rule struct {
	ID         string       `json:"id"`
	CampusID   string       `json:"campus_id"`
	Department string       `json:"department,omitempty"`
	Text       string       `json:"text"`
	Category   RuleCategory `json:"category"`

	// Hard demographic bounds, set for age/weight restriction rules.
	MinAgeYears *float64 `json:"min_age_years,omitempty"`
	MaxAgeYears *float64 `json:"max_age_years,omitempty"`
	MinWeightKg *float64 `json:"min_weight_kg,omitempty"`
	MaxWeightKg *float64 `json:"max_weight_kg,omitempty"`
}

// CampusLevel reports whether the rule applies campus-wide rather than to a
// single department.
func (r Rule) CampusLevel() bool {
	return r.Department == ""
}

// ExclusionStatus is the verdict status for one rule.
type ExclusionStatus string

const (
	StatusLikelyMet    ExclusionStatus = "likely_met"
	StatusLikelyNotMet ExclusionStatus = "likely_not_met"
	StatusUncertain    ExclusionStatus = "uncertain"
)

// ExclusionVerdict is the evaluation of one rule for one campus. Every rule
// in scope receives exactly one verdict.
type ExclusionVerdict struct {
	RuleID     string          `json:"rule_id"`
	RuleText   string          `json:"rule_text"`
	CampusID   string          `json:"campus_id"`
	Department string          `json:"department,omitempty"`
	Category   RuleCategory    `json:"category"`
	Status     ExclusionStatus `json:"status"`
	Confidence int             `json:"confidence"` // 0-100
	Evidence   string          `json:"evidence"`
}
