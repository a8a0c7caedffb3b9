package model

import "time"

// TransferRequest is one inbound request to place a patient. A new request
// for the same patient supersedes the old one; facts are never merged.
type TransferRequest struct {
	RequestID   string        `json:"request_id"`
	Narrative   string        `json:"narrative"`
	Origin      *Location     `json:"origin"`
	Transport   TransportMode `json:"transport_mode"`
	Strict      bool          `json:"strict"`
	RequestedAt time.Time     `json:"requested_at"`
}

// Explainability is the structured record of every upstream artifact the
// synthesizer consulted. All keys are always present; absent data is an
// explicit null or empty value, never a missing key.
type Explainability struct {
	Facts       ClinicalFactSet                `json:"facts"`
	Specialties SpecialtyAssessment            `json:"specialties"`
	Verdicts    map[string][]ExclusionVerdict  `json:"verdicts"`
	Scores      []ScoringResult                `json:"scores"`
	Travel      map[string]*TravelEstimate     `json:"travel"`
	Beds        map[string]*BedCensus          `json:"beds"`
	Candidates  []CampusCandidate              `json:"candidates"`
	Warnings    []string                       `json:"warnings"`
	Degraded    []string                       `json:"degraded"`
}

// NewExplainability returns a payload with every collection initialized.
func NewExplainability() Explainability {
	return Explainability{
		Facts:       EmptyFactSet(),
		Specialties: EmptyAssessment(),
		Verdicts:    map[string][]ExclusionVerdict{},
		Scores:      []ScoringResult{},
		Travel:      map[string]*TravelEstimate{},
		Beds:        map[string]*BedCensus{},
		Candidates:  []CampusCandidate{},
		Warnings:    []string{},
		Degraded:    []string{},
	}
}

// BackupRecommendation is the second-ranked campus with its own derived
// confidence.
type BackupRecommendation struct {
	CampusID   string `json:"campus_id"`
	CampusName string `json:"campus_name"`
	Confidence int    `json:"confidence"`
}

// Recommendation is the final, immutable output of the pipeline. CampusID is
// nil when no eligible campus was found, which is a valid clinical outcome
// rather than an error.
type Recommendation struct {
	RequestID      string                `json:"request_id"`
	CampusID       *string               `json:"campus_id"`
	CampusName     string                `json:"campus_name,omitempty"`
	CareLevel      CareLevel             `json:"care_level"`
	Confidence     int                   `json:"confidence"` // 0-100, derived, never guessed
	Reason         string                `json:"reason"`
	Notes          []string              `json:"notes"`
	Backup         *BackupRecommendation `json:"backup"`
	Explainability Explainability        `json:"explainability"`
	CreatedAt      time.Time             `json:"created_at"`
}

// NoteRuleOnlyFallback marks a recommendation produced without LLM narrative
// reasoning. Tests and reviewers key off this exact string.
const NoteRuleOnlyFallback = "generated without narrative reasoning"
