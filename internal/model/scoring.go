package model

// ScoringResult is the output of one severity scoring system. When required
// inputs are missing the numeric total is omitted and InsufficientData is set;
// missing data is never scored as normal.
type ScoringResult struct {
	System           string         `json:"system"`
	Total            *int           `json:"total"`
	Subscores        map[string]int `json:"subscores"`
	Interpretation   string         `json:"interpretation"`
	Action           string         `json:"action,omitempty"`
	CareLevel        CareLevel      `json:"care_level"`
	InsufficientData bool           `json:"insufficient_data"`
	MissingFields    []string       `json:"missing_fields,omitempty"`
}

// Computed reports whether the system produced a numeric total.
func (s ScoringResult) Computed() bool {
	return !s.InsufficientData && s.Total != nil
}
