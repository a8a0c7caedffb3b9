package model

// Location is a geographical point in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CareLevel is the ordinal clinical intensity category.
type CareLevel string

const (
	CareLevelGeneral      CareLevel = "General"
	CareLevelIntermediate CareLevel = "Intermediate"
	CareLevelICU          CareLevel = "ICU"
	CareLevelPICU         CareLevel = "PICU"
	CareLevelNICU         CareLevel = "NICU"
)

// Rank returns the ordinal position of the care level:
// General < Intermediate < ICU/PICU/NICU.
func (c CareLevel) Rank() int {
	switch c {
	case CareLevelIntermediate:
		return 1
	case CareLevelICU, CareLevelPICU, CareLevelNICU:
		return 2
	default:
		return 0
	}
}

// TransportMode enumerates available transport modes.
type TransportMode string

const (
	TransportGround     TransportMode = "GROUND_AMBULANCE"
	TransportHelicopter TransportMode = "HELICOPTER"
	TransportFixedWing  TransportMode = "FIXED_WING"
)

// BedCensus holds current bed counts per care class for one campus.
type BedCensus struct {
	TotalBeds         int `json:"total_beds"`
	AvailableBeds     int `json:"available_beds"`
	ICUBedsTotal      int `json:"icu_beds_total"`
	ICUBedsAvailable  int `json:"icu_beds_available"`
	NICUBedsTotal     int `json:"nicu_beds_total"`
	NICUBedsAvailable int `json:"nicu_beds_available"`
}

// AvailableFor returns the number of open beds for the given care level.
// ICU counts include PICU.
func (b BedCensus) AvailableFor(level CareLevel) int {
	switch level {
	case CareLevelICU, CareLevelPICU:
		return b.ICUBedsAvailable
	case CareLevelNICU:
		return b.NICUBedsAvailable
	default:
		return b.AvailableBeds
	}
}

// Helipad describes a landing site at a campus.
type Helipad struct {
	HelipadID string   `json:"helipad_id"`
	Name      string   `json:"name,omitempty"`
	Location  Location `json:"location"`
}

// CampusExclusion is a capability-level exclusion shipped with the hospital
// metadata, matched by keyword against complaint and history text.
type CampusExclusion struct {
	CriteriaID        string   `json:"criteria_id"`
	Description       string   `json:"description"`
	ComplaintKeywords []string `json:"affected_keywords_in_complaint"`
	HistoryKeywords   []string `json:"affected_keywords_in_history"`
}

// HospitalCampus is one candidate receiving facility.
type HospitalCampus struct {
	CampusID   string            `json:"campus_id"`
	Name       string            `json:"name"`
	Location   Location          `json:"location"`
	BedCensus  BedCensus         `json:"bed_census"`
	Exclusions []CampusExclusion `json:"exclusions"`
	Helipads   []Helipad         `json:"helipads"`
}

// TravelEstimate is the oracle's answer for one origin/campus pair.
type TravelEstimate struct {
	DistanceKm  float64       `json:"distance_km"`
	DurationMin float64       `json:"duration_min"`
	Mode        TransportMode `json:"mode"`
}

// CampusCandidate pairs a campus with everything the synthesizer needs to
// judge it. Travel and Beds are nil when the oracle could not answer:
// unknown, not zero.
type CampusCandidate struct {
	Campus          HospitalCampus     `json:"campus"`
	Verdicts        []ExclusionVerdict `json:"verdicts"`
	Travel          *TravelEstimate    `json:"travel"`
	Beds            *BedCensus         `json:"beds"`
	Eligible        bool               `json:"eligible"`
	ExclusionReason string             `json:"exclusion_reason,omitempty"`
}
