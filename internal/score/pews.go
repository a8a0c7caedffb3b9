package score

import "github.com/drockthedoc/transfer-center/internal/model"

// CalculatePEWS computes the Pediatric Early Warning Score. Age, respiratory
// rate and heart rate are required; descriptor inputs contribute when present.
func CalculatePEWS(in Inputs) model.ScoringResult {
	missing := missingPEWSFields(in)
	if len(missing) > 0 {
		return model.ScoringResult{
			System:           "PEWS",
			Subscores:        map[string]int{},
			Interpretation:   "insufficient data to compute PEWS",
			CareLevel:        model.CareLevelGeneral,
			InsufficientData: true,
			MissingFields:    missing,
		}
	}

	hrRange, rrRange := rangesFor(*in.AgeMonths)

	respiratory := bandDeviation(*in.RespiratoryRate, rrRange, 5, 10, 15)
	respiratory += mapScore(in.RespiratoryEffort, respiratoryEffortMap)
	if oxy := mapScore(in.OxygenTherapy, oxygenTherapyMap); oxy > respiratory {
		respiratory = oxy
	}

	cardiovascular := bandDeviation(*in.HeartRate, hrRange, 10, 20, 30)
	if in.CapillaryRefillSec != nil {
		switch {
		case *in.CapillaryRefillSec >= 3:
			cardiovascular += 2
		case *in.CapillaryRefillSec >= 2:
			cardiovascular++
		}
	}

	behavior := mapScore(in.Behavior, behaviorMap)

	total := respiratory + cardiovascular + behavior

	var interpretation, action string
	var careLevel model.CareLevel
	switch {
	case total <= 2:
		interpretation = "Low Risk: Routine care"
		action = "Continue routine monitoring"
		careLevel = model.CareLevelGeneral
	case total <= 4:
		interpretation = "Medium Risk: Increased surveillance"
		action = "Increase frequency of vital sign monitoring; consider notification of medical team"
		careLevel = model.CareLevelIntermediate
	case total <= 6:
		interpretation = "High Risk: Medical review needed"
		action = "Notify medical team now; consider PICU consult"
		careLevel = model.CareLevelPICU
	default:
		interpretation = "Critical Risk: Immediate intervention"
		action = "Immediate medical team review; PICU consult/transfer indicated"
		careLevel = model.CareLevelPICU
	}

	return model.ScoringResult{
		System:         "PEWS",
		Total:          intPtr(total),
		Interpretation: interpretation,
		Action:         action,
		CareLevel:      careLevel,
		Subscores: map[string]int{
			"respiratory":    respiratory,
			"cardiovascular": cardiovascular,
			"behavior":       behavior,
		},
	}
}

func missingPEWSFields(in Inputs) []string {
	var missing []string
	if in.AgeMonths == nil {
		missing = append(missing, "age")
	}
	if in.RespiratoryRate == nil {
		missing = append(missing, "respiratory_rate")
	}
	if in.HeartRate == nil {
		missing = append(missing, "heart_rate")
	}
	return missing
}

// bandDeviation scores how far a vital sits outside its normal band. The
// three margins widen the band for 1, 2 and 3 points; deviations below the
// band score one point less per margin than deviations above it, matching
// clinical practice where tachycardia and tachypnea weigh heavier.
func bandDeviation(value float64, band vitalRange, m1, m2, m3 float64) int {
	switch {
	case value > band.Max+m3:
		return 3
	case value > band.Max+m2:
		return 2
	case value > band.Max+m1:
		return 1
	case value < band.Min-m2:
		return 2
	case value < band.Min-m1:
		return 1
	default:
		return 0
	}
}
