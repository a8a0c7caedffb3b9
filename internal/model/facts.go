package model

// VitalValue holds one extracted vital sign. Values that could not be parsed
// numerically are kept verbatim in Text with Raw set, never dropped.
type VitalValue struct {
	Number *float64 `json:"number"`         // Parsed numeric value, nil when unparsable
	Text   string   `json:"text,omitempty"` // Original textual value
	Unit   string   `json:"unit,omitempty"` // Unit as stated in the narrative, if any
	Raw    bool     `json:"raw,omitempty"`  // True when the value was retained as raw text only
}

// Demographics holds optional patient demographics. Nil means "not stated".
type Demographics struct {
	AgeYears *float64 `json:"age_years"`
	WeightKg *float64 `json:"weight_kg"`
	Sex      string   `json:"sex,omitempty"`
}

// ClinicalFactSet is the structured output of narrative extraction.
// Nothing is discarded silently: fragments that did not fit the schema are
// carried in Unparsed.
type ClinicalFactSet struct {
	Symptoms     []string              `json:"symptoms"`
	Problems     []string              `json:"medical_problems"`
	Medications  []string              `json:"medications"`
	VitalSigns   map[string]VitalValue `json:"vital_signs"`
	Demographics Demographics          `json:"demographics"`
	History      string                `json:"history"`
	Context      string                `json:"context"`
	Unparsed     []string              `json:"unparsed"`
}

// EmptyFactSet returns a fact set with all collections initialized, so JSON
// output always carries explicit empty values rather than missing keys.
func EmptyFactSet() ClinicalFactSet {
	return ClinicalFactSet{
		Symptoms:    []string{},
		Problems:    []string{},
		Medications: []string{},
		VitalSigns:  map[string]VitalValue{},
		Unparsed:    []string{},
	}
}

// IsEmpty reports whether the fact set carries no extracted information.
func (f ClinicalFactSet) IsEmpty() bool {
	return len(f.Symptoms) == 0 &&
		len(f.Problems) == 0 &&
		len(f.Medications) == 0 &&
		len(f.VitalSigns) == 0 &&
		f.Demographics.AgeYears == nil &&
		f.Demographics.WeightKg == nil &&
		f.Demographics.Sex == "" &&
		f.History == "" &&
		f.Context == "" &&
		len(f.Unparsed) == 0
}

// Specialty is one entry of a specialty assessment. Evidence is mandatory:
// a specialty may not carry a positive likelihood without it.
type Specialty struct {
	Name       string `json:"specialty"`
	Likelihood int    `json:"likelihood"` // 0-100
	Evidence   string `json:"evidence"`
}

// SpecialtyAssessment is the likelihood-ranked list of specialties a patient
// needs. Ordering is highest likelihood first; names are unique.
type SpecialtyAssessment struct {
	Specialties        []Specialty `json:"specialties"`
	SuggestedCareLevel CareLevel   `json:"suggested_care_level,omitempty"`
}

// EmptyAssessment returns an assessment with no specialties identified.
func EmptyAssessment() SpecialtyAssessment {
	return SpecialtyAssessment{Specialties: []Specialty{}}
}
