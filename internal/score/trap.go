package score

import "github.com/drockthedoc/transfer-center/internal/model"

// CalculateTRAP computes the Transport Risk Assessment in Pediatrics score,
// which estimates the risk of deterioration during inter-facility transport.
// At least one input from each of the respiratory, hemodynamic and neurologic
// domains is required; the overall score is the worst domain score.
func CalculateTRAP(in Inputs) model.ScoringResult {
	missing := missingTRAPDomains(in)
	if len(missing) > 0 {
		return model.ScoringResult{
			System:           "TRAP",
			Subscores:        map[string]int{},
			Interpretation:   "insufficient data to compute TRAP",
			CareLevel:        model.CareLevelGeneral,
			InsufficientData: true,
			MissingFields:    missing,
		}
	}

	var hrRange, rrRange vitalRange
	haveRanges := in.AgeMonths != nil
	if haveRanges {
		hrRange, rrRange = rangesFor(*in.AgeMonths)
	}

	respiratory := mapScore(in.OxygenTherapy, oxygenTherapyMap)
	respiratory = maxInt(respiratory, mapScore(in.RespiratoryEffort, respiratoryEffortMap))
	if in.OxygenSaturation != nil {
		switch {
		case *in.OxygenSaturation < 90:
			respiratory = maxInt(respiratory, 3)
		case *in.OxygenSaturation < 94:
			respiratory = maxInt(respiratory, 2)
		case *in.OxygenSaturation < 97:
			respiratory = maxInt(respiratory, 1)
		}
	}
	if in.RespiratoryRate != nil && haveRanges {
		rr := *in.RespiratoryRate
		switch {
		case rr < rrRange.Min-10 || rr > rrRange.Max+20:
			respiratory = maxInt(respiratory, 3)
		case rr < rrRange.Min-5 || rr > rrRange.Max+10:
			respiratory = maxInt(respiratory, 2)
		case rr < rrRange.Min || rr > rrRange.Max+5:
			respiratory = maxInt(respiratory, 1)
		}
	}

	hemodynamic := mapScore(in.Hemodynamics, hemodynamicMap)
	if in.HeartRate != nil && haveRanges {
		hr := *in.HeartRate
		switch {
		case hr < hrRange.Min-20 || hr > hrRange.Max+30:
			hemodynamic = maxInt(hemodynamic, 3)
		case hr < hrRange.Min-10 || hr > hrRange.Max+20:
			hemodynamic = maxInt(hemodynamic, 2)
		case hr < hrRange.Min || hr > hrRange.Max+10:
			hemodynamic = maxInt(hemodynamic, 1)
		}
	}
	if in.SystolicBP != nil && in.AgeMonths != nil {
		// Age-based normal systolic: 70 + 2 per year of age.
		normal := 70 + 2*(*in.AgeMonths/12)
		switch {
		case *in.SystolicBP < normal-20:
			hemodynamic = maxInt(hemodynamic, 3)
		case *in.SystolicBP < normal-10:
			hemodynamic = maxInt(hemodynamic, 2)
		case *in.SystolicBP < normal-5:
			hemodynamic = maxInt(hemodynamic, 1)
		}
	}

	neurologic := mapScore(in.MentalStatus, mentalStatusMap)
	if in.GCS != nil {
		switch {
		case *in.GCS <= 8:
			neurologic = maxInt(neurologic, 3)
		case *in.GCS <= 12:
			neurologic = maxInt(neurologic, 2)
		case *in.GCS <= 14:
			neurologic = maxInt(neurologic, 1)
		}
	}

	access := mapScore(in.AccessDifficulty, accessMap)

	total := maxInt(respiratory, maxInt(hemodynamic, neurologic))
	// Difficult access on an already unstable patient raises the risk level.
	if total >= 2 && access >= 2 {
		total++
	}

	var interpretation, action string
	var careLevel model.CareLevel
	switch {
	case total <= 0:
		interpretation = "Low Risk"
		action = "Standard transport team"
		careLevel = model.CareLevelGeneral
	case total == 1:
		interpretation = "Medium Risk"
		action = "Consider advanced care providers"
		careLevel = model.CareLevelIntermediate
	case total == 2:
		interpretation = "High Risk"
		action = "Advanced care transport team required"
		careLevel = model.CareLevelPICU
	default:
		interpretation = "Critical Risk"
		action = "Critical care transport team required with physician consideration"
		careLevel = model.CareLevelPICU
	}

	return model.ScoringResult{
		System:         "TRAP",
		Total:          intPtr(total),
		Interpretation: interpretation,
		Action:         action,
		CareLevel:      careLevel,
		Subscores: map[string]int{
			"respiratory": respiratory,
			"hemodynamic": hemodynamic,
			"neurologic":  neurologic,
			"access":      access,
		},
	}
}

func missingTRAPDomains(in Inputs) []string {
	var missing []string
	if in.OxygenTherapy == "" && in.RespiratoryEffort == "" &&
		in.OxygenSaturation == nil && in.RespiratoryRate == nil {
		missing = append(missing, "respiratory")
	}
	if in.Hemodynamics == "" && in.HeartRate == nil && in.SystolicBP == nil {
		missing = append(missing, "hemodynamic")
	}
	if in.MentalStatus == "" && in.GCS == nil {
		missing = append(missing, "neurologic")
	}
	return missing
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
