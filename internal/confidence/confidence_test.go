package confidence

import (
	"testing"

	"github.com/drockthedoc/transfer-center/internal/model"
)

func TestEstimate_Deterministic(t *testing.T) {
	in := Inputs{FactCompleteness: 0.5, ScoringCertainty: 0.5, ExclusionClarity: 0.8, TravelKnown: true}
	if Estimate(in) != Estimate(in) {
		t.Error("identical inputs must yield identical confidence")
	}
}

func TestEstimate_Monotonic(t *testing.T) {
	base := Inputs{
		FactCompleteness: 0.3,
		ScoringCertainty: 0.5,
		ExclusionClarity: 0.4,
		SpecialtyClarity: 0.2,
	}
	baseline := Estimate(base)

	richer := base
	richer.FactCompleteness = 0.6
	if Estimate(richer) < baseline {
		t.Error("more complete facts must not lower confidence")
	}

	richer = base
	richer.ExclusionClarity = 0.9
	if Estimate(richer) < baseline {
		t.Error("more decisive verdicts must not lower confidence")
	}

	richer = base
	richer.TravelKnown = true
	richer.BedsKnown = true
	if Estimate(richer) <= baseline {
		t.Error("adding oracle data must raise confidence")
	}
}

func TestEstimate_Bounds(t *testing.T) {
	if got := Estimate(Inputs{}); got != 0 {
		t.Errorf("empty inputs should score 0, got %d", got)
	}
	full := Inputs{
		FactCompleteness: 1, ScoringCertainty: 1, ExclusionClarity: 1,
		SpecialtyClarity: 1, TravelKnown: true, BedsKnown: true,
	}
	if got := Estimate(full); got != 100 {
		t.Errorf("complete inputs should score 100, got %d", got)
	}
	overflow := full
	overflow.FactCompleteness = 5
	if got := Estimate(overflow); got != 100 {
		t.Errorf("ratios must clamp, got %d", got)
	}
}

func TestEstimate_NarrativeFallbackPenalty(t *testing.T) {
	in := Inputs{FactCompleteness: 0.8, ScoringCertainty: 1, ExclusionClarity: 0.9, TravelKnown: true, BedsKnown: true}
	withNarrative := Estimate(in)
	in.NarrativeFallback = true
	withoutNarrative := Estimate(in)
	if withoutNarrative >= withNarrative {
		t.Errorf("rule-only fallback must lower confidence: %d vs %d", withoutNarrative, withNarrative)
	}
}

func TestFactCompleteness(t *testing.T) {
	empty := FactCompleteness(model.EmptyFactSet())
	if empty != 0 {
		t.Errorf("empty facts should be 0, got %f", empty)
	}

	age := 4.0
	facts := model.EmptyFactSet()
	facts.Demographics.AgeYears = &age
	facts.Symptoms = []string{"cough"}
	partial := FactCompleteness(facts)
	if partial <= empty {
		t.Error("adding fields must raise completeness")
	}
	if partial > 1 {
		t.Errorf("completeness must stay in [0,1], got %f", partial)
	}
}

func TestExclusionClarity(t *testing.T) {
	decisive := []model.ExclusionVerdict{
		{Status: model.StatusLikelyNotMet, Confidence: 90},
		{Status: model.StatusLikelyMet, Confidence: 95},
	}
	mixed := []model.ExclusionVerdict{
		{Status: model.StatusLikelyNotMet, Confidence: 90},
		{Status: model.StatusUncertain, Confidence: 40},
	}
	if ExclusionClarity(decisive) <= ExclusionClarity(mixed) {
		t.Error("uncertain verdicts must lower clarity")
	}
	if ExclusionClarity(nil) != 0 {
		t.Error("no verdicts means no clarity")
	}
}

func TestScoringCertainty(t *testing.T) {
	total := 4
	scores := []model.ScoringResult{
		{System: "PEWS", Total: &total},
		{System: "TRAP", InsufficientData: true},
	}
	if got := ScoringCertainty(scores); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}
