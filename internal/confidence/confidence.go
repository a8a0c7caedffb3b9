// Package confidence derives the recommendation confidence score. The
// estimate is pure and reproducible: identical inputs always yield the same
// number, more complete inputs never yield a lower one, and no constant in
// here is detached from input completeness.
package confidence

import (
	"math"

	"github.com/drockthedoc/transfer-center/internal/model"
)

// Inputs are the completeness and clarity ratios the estimate is built from.
// All ratios are clamped to [0,1].
type Inputs struct {
	// FactCompleteness is the fraction of core clinical fields (demographics,
	// vitals, symptoms) the extractor recovered.
	FactCompleteness float64

	// ScoringCertainty is the fraction of scoring systems that produced a
	// numeric total.
	ScoringCertainty float64

	// ExclusionClarity is the confidence-weighted fraction of decisive
	// (non-uncertain) exclusion verdicts.
	ExclusionClarity float64

	// SpecialtyClarity reflects how decisively the top specialty was ranked.
	SpecialtyClarity float64

	TravelKnown bool
	BedsKnown   bool

	// NarrativeFallback marks a recommendation produced without narrative
	// reasoning. It applies a fixed multiplicative penalty.
	NarrativeFallback bool
}

// Factor weights sum to 100. Travel and bed knowledge are binary factors.
const (
	weightFacts     = 30.0
	weightScoring   = 20.0
	weightExclusion = 25.0
	weightSpecialty = 10.0
	weightTravel    = 7.5
	weightBeds      = 7.5

	// narrativeFallbackFactor is the documented deduction for rule-only
	// recommendations. Multiplicative, so it preserves monotonicity.
	narrativeFallbackFactor = 0.7
)

// Estimate returns a confidence in [0,100].
func Estimate(in Inputs) int {
	total := weightFacts*clamp01(in.FactCompleteness) +
		weightScoring*clamp01(in.ScoringCertainty) +
		weightExclusion*clamp01(in.ExclusionClarity) +
		weightSpecialty*clamp01(in.SpecialtyClarity)
	if in.TravelKnown {
		total += weightTravel
	}
	if in.BedsKnown {
		total += weightBeds
	}
	if in.NarrativeFallback {
		total *= narrativeFallbackFactor
	}

	rounded := int(math.Round(total))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// FactCompleteness measures how much of the core clinical picture the fact
// set covers. Each present field group contributes equally.
func FactCompleteness(facts model.ClinicalFactSet) float64 {
	present := 0
	if facts.Demographics.AgeYears != nil {
		present++
	}
	if facts.Demographics.WeightKg != nil {
		present++
	}
	if len(facts.VitalSigns) > 0 {
		present++
	}
	if len(facts.Symptoms) > 0 {
		present++
	}
	if len(facts.Problems) > 0 || facts.History != "" {
		present++
	}
	if len(facts.Medications) > 0 {
		present++
	}
	return float64(present) / 6
}

// ScoringCertainty is the fraction of scoring systems that computed a total.
func ScoringCertainty(scores []model.ScoringResult) float64 {
	if len(scores) == 0 {
		return 0
	}
	computed := 0
	for _, s := range scores {
		if s.Computed() {
			computed++
		}
	}
	return float64(computed) / float64(len(scores))
}

// ExclusionClarity is the mean verdict decisiveness: decisive verdicts
// contribute their confidence, uncertain ones contribute nothing.
func ExclusionClarity(verdicts []model.ExclusionVerdict) float64 {
	if len(verdicts) == 0 {
		return 0
	}
	var sum float64
	for _, v := range verdicts {
		if v.Status == model.StatusUncertain {
			continue
		}
		sum += float64(v.Confidence) / 100
	}
	return sum / float64(len(verdicts))
}

// SpecialtyClarity reflects how strongly the top specialty was identified.
func SpecialtyClarity(assessment model.SpecialtyAssessment) float64 {
	if len(assessment.Specialties) == 0 {
		return 0
	}
	return clamp01(float64(assessment.Specialties[0].Likelihood) / 100)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
