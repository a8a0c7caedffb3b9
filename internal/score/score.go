// Package score implements deterministic pediatric severity scoring. Every
// calculator is a pure function of its inputs: no network calls, no
// randomness. Missing required inputs produce an explicit insufficient-data
// result, never a silently "normal" score.
package score

import (
	"strconv"
	"strings"

	"github.com/drockthedoc/transfer-center/internal/model"
)

// Inputs are the normalized vitals and descriptors a calculator consumes.
// Nil pointers and empty strings mean "not stated".
type Inputs struct {
	AgeMonths          *float64
	RespiratoryRate    *float64
	HeartRate          *float64
	OxygenSaturation   *float64
	TemperatureC       *float64
	SystolicBP         *float64
	CapillaryRefillSec *float64
	GCS                *float64

	RespiratoryEffort string
	OxygenTherapy     string
	Behavior          string
	MentalStatus      string
	Hemodynamics      string
	AccessDifficulty  string
}

// vitalRange is the normal band for one vital at one age.
type vitalRange struct {
	Min, Max float64
}

type ageBand struct {
	minMonths, maxMonths float64
	heartRate            vitalRange
	respiratoryRate      vitalRange
}

// Published pediatric reference ranges by age in months.
var ageBands = []ageBand{
	{0, 3, vitalRange{100, 150}, vitalRange{40, 60}},
	{3, 12, vitalRange{90, 120}, vitalRange{30, 45}},
	{12, 36, vitalRange{80, 115}, vitalRange{25, 40}},
	{36, 72, vitalRange{70, 110}, vitalRange{20, 30}},
	{72, 144, vitalRange{65, 100}, vitalRange{18, 25}},
	{144, 216, vitalRange{60, 90}, vitalRange{15, 20}},
}

// rangesFor returns the age-appropriate heart rate and respiratory rate
// bands. Ages past the table fall back to adolescent values.
func rangesFor(ageMonths float64) (hr, rr vitalRange) {
	for _, b := range ageBands {
		if ageMonths >= b.minMonths && ageMonths < b.maxMonths {
			return b.heartRate, b.respiratoryRate
		}
	}
	return vitalRange{60, 90}, vitalRange{15, 20}
}

var respiratoryEffortMap = map[string]int{
	"normal": 0, "none": 0,
	"mild": 1, "slight": 1, "minimal": 1,
	"moderate": 2, "increased": 2, "labored": 2,
	"severe": 3, "significant": 3,
}

var oxygenTherapyMap = map[string]int{
	"none": 0, "room air": 0, "ra": 0,
	"low flow": 1, "nasal cannula": 1, "simple mask": 1,
	"high flow": 2, "non-rebreather": 2,
	"ventilated": 3, "intubated": 3, "bipap": 3, "cpap": 3,
}

var mentalStatusMap = map[string]int{
	"alert": 0, "a": 0, "normal": 0,
	"voice": 1, "v": 1, "responds to voice": 1,
	"pain": 2, "p": 2, "responds to pain": 2,
	"unresponsive": 3, "u": 3,
}

var behaviorMap = map[string]int{
	"playing": 0, "appropriate": 0, "normal": 0, "sleeping": 0,
	"irritable": 1, "consolable": 1,
	"reduced": 2, "lethargic": 2, "confused": 2,
	"unresponsive": 3,
}

var hemodynamicMap = map[string]int{
	"stable": 0, "normal": 0,
	"compensated": 1, "borderline": 1,
	"unstable": 2, "shock": 2, "decompensated": 2,
}

var accessMap = map[string]int{
	"easy": 0, "normal": 0, "routine": 0,
	"moderate": 1, "challenging": 1,
	"difficult":      2,
	"very difficult": 3, "central": 3, "io": 3, "intraosseous": 3,
}

func mapScore(value string, mapping map[string]int) int {
	if value == "" {
		return 0
	}
	return mapping[strings.ToLower(strings.TrimSpace(value))]
}

// vitalAliases normalizes the free-form vital sign keys the extractor emits.
var vitalAliases = map[string]string{
	"rr": "rr", "resp_rate": "rr", "respiratory_rate": "rr", "respirations": "rr",
	"hr": "hr", "heart_rate": "hr", "pulse": "hr",
	"spo2": "spo2", "o2_sat": "spo2", "oxygen_saturation": "spo2", "sat": "spo2", "sats": "spo2",
	"temp": "temp", "temperature": "temp",
	"bp": "bp", "blood_pressure": "bp", "sbp": "bp", "systolic": "bp",
	"cap_refill": "cap_refill", "capillary_refill": "cap_refill", "crt": "cap_refill",
	"gcs": "gcs",
	"respiratory_effort": "effort", "work_of_breathing": "effort",
	"oxygen": "oxygen", "oxygen_requirement": "oxygen", "respiratory_support": "oxygen", "o2": "oxygen",
	"behavior":      "behavior",
	"mental_status": "mental_status", "avpu": "mental_status",
	"hemodynamics": "hemodynamics", "perfusion": "hemodynamics",
	"access": "access", "iv_access": "access",
}

// InputsFromFacts maps an extracted fact set onto scoring inputs. Unknown
// vital keys are left alone; they still appear in the fact set itself.
func InputsFromFacts(facts model.ClinicalFactSet) Inputs {
	var in Inputs
	if facts.Demographics.AgeYears != nil {
		months := *facts.Demographics.AgeYears * 12
		in.AgeMonths = &months
	}

	for key, value := range facts.VitalSigns {
		canon, ok := vitalAliases[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		switch canon {
		case "rr":
			in.RespiratoryRate = numberOf(value)
		case "hr":
			in.HeartRate = numberOf(value)
		case "spo2":
			in.OxygenSaturation = numberOf(value)
		case "temp":
			in.TemperatureC = numberOf(value)
		case "bp":
			in.SystolicBP = systolicOf(value)
		case "cap_refill":
			in.CapillaryRefillSec = numberOf(value)
		case "gcs":
			in.GCS = numberOf(value)
		case "effort":
			in.RespiratoryEffort = value.Text
		case "oxygen":
			in.OxygenTherapy = value.Text
		case "behavior":
			in.Behavior = value.Text
		case "mental_status":
			in.MentalStatus = value.Text
		case "hemodynamics":
			in.Hemodynamics = value.Text
		case "access":
			in.AccessDifficulty = value.Text
		}
	}
	return in
}

func numberOf(v model.VitalValue) *float64 {
	if v.Number != nil {
		n := *v.Number
		return &n
	}
	text := strings.TrimSpace(v.Text)
	if text == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(strings.TrimSuffix(text, "%"), 64); err == nil {
		return &n
	}
	return nil
}

// systolicOf reads the systolic component of a blood pressure value, which is
// commonly reported as "120/80".
func systolicOf(v model.VitalValue) *float64 {
	if v.Number != nil {
		n := *v.Number
		return &n
	}
	text := strings.TrimSpace(v.Text)
	if idx := strings.IndexByte(text, '/'); idx > 0 {
		text = text[:idx]
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
		return &n
	}
	return nil
}

// All runs every scoring system against the same inputs. Results are
// independent; no cross-normalization happens here.
func All(in Inputs) []model.ScoringResult {
	return []model.ScoringResult{
		CalculatePEWS(in),
		CalculateTRAP(in),
	}
}

// RequiredCareLevel returns the highest care level demanded by any computed
// score. The second return is false when no system produced a numeric total.
func RequiredCareLevel(results []model.ScoringResult) (model.CareLevel, bool) {
	best := model.CareLevelGeneral
	computed := false
	for _, r := range results {
		if !r.Computed() {
			continue
		}
		computed = true
		if r.CareLevel.Rank() > best.Rank() {
			best = r.CareLevel
		}
	}
	return best, computed
}

func intPtr(n int) *int { return &n }
