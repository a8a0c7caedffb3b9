package exclusion

import (
	"context"
	"errors"
	"testing"

	"github.com/drockthedoc/transfer-center/internal/llm"
	"github.com/drockthedoc/transfer-center/internal/model"
)

func f(v float64) *float64 { return &v }

func testRules() []model.Rule {
	max := 21.0
	return []model.Rule{
		{ID: "austin/general/excl#01", CampusID: "austin", Text: "Requires active CPR", Category: model.RuleBlocking},
		{ID: "austin/general/age#01", CampusID: "austin", Text: "Greater than 21 years of age", Category: model.RuleBlocking, MaxAgeYears: &max},
		{ID: "austin/picu/excl#01", CampusID: "austin", Department: "picu", Text: "Requires ECMO", Category: model.RuleBlocking},
	}
}

func respiratoryFacts() model.ClinicalFactSet {
	facts := model.EmptyFactSet()
	facts.Symptoms = []string{"respiratory distress"}
	facts.Problems = []string{"bronchiolitis"}
	facts.Demographics.AgeYears = f(8)
	return facts
}

func TestEvaluate_OneVerdictPerRule(t *testing.T) {
	evaluator := NewEvaluator(nil)
	rules := testRules()

	verdicts, err := evaluator.Evaluate(context.Background(), respiratoryFacts(), rules)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(verdicts) != len(rules) {
		t.Fatalf("verdict count %d != rule count %d", len(verdicts), len(rules))
	}
	for i, v := range verdicts {
		if v.RuleID != rules[i].ID {
			t.Errorf("order not preserved at %d: %s", i, v.RuleID)
		}
		if v.Evidence == "" {
			t.Errorf("verdict %s has no evidence", v.RuleID)
		}
		if v.Confidence < 0 || v.Confidence > 100 {
			t.Errorf("verdict %s confidence out of range: %d", v.RuleID, v.Confidence)
		}
	}
}

func TestEvaluate_NoMentionIsLikelyNotMet(t *testing.T) {
	evaluator := NewEvaluator(nil)

	verdicts, err := evaluator.Evaluate(context.Background(), respiratoryFacts(), testRules())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	cpr := verdicts[0]
	if cpr.Status != model.StatusLikelyNotMet {
		t.Errorf("no CPR mention should be likely_not_met, got %s", cpr.Status)
	}
	if cpr.Confidence < 90 {
		t.Errorf("deterministic no-match should be confident, got %d", cpr.Confidence)
	}
}

func TestEvaluate_AgeRestriction(t *testing.T) {
	evaluator := NewEvaluator(nil)
	facts := respiratoryFacts()
	facts.Demographics.AgeYears = f(25)

	verdicts, err := evaluator.Evaluate(context.Background(), facts, testRules())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	age := verdicts[1]
	if age.Status != model.StatusLikelyMet {
		t.Errorf("age 25 against maximum 21 should be likely_met, got %s", age.Status)
	}
	if age.Confidence < 90 {
		t.Errorf("demographic comparison should be near certain, got %d", age.Confidence)
	}
}

func TestEvaluate_MissingAgeIsUncertain(t *testing.T) {
	evaluator := NewEvaluator(nil)
	facts := respiratoryFacts()
	facts.Demographics.AgeYears = nil

	verdicts, _ := evaluator.Evaluate(context.Background(), facts, testRules())
	if verdicts[1].Status != model.StatusUncertain {
		t.Errorf("unknown age must stay uncertain, got %s", verdicts[1].Status)
	}
}

func TestEvaluate_BackendRefinesAmbiguousRules(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{
		`{"verdicts":[{"rule_id":"austin/picu/excl#01","status":"likely_met","confidence":85,"evidence":"cannulated for ECMO at sending facility"}]}`,
	}}
	evaluator := NewEvaluator(stub)

	facts := respiratoryFacts()
	facts.Context = "on ECMO"

	verdicts, err := evaluator.Evaluate(context.Background(), facts, testRules())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	ecmo := verdicts[2]
	if ecmo.Status != model.StatusLikelyMet || ecmo.Confidence != 85 {
		t.Errorf("backend refinement not applied: %+v", ecmo)
	}
	if len(stub.Calls()) != 1 {
		t.Errorf("ambiguous rules should batch into one call, got %d", len(stub.Calls()))
	}
}

func TestEvaluate_BackendFailureKeepsDeterministicVerdicts(t *testing.T) {
	evaluator := NewEvaluator(&llm.StubClient{Err: errors.New("timeout")})

	facts := respiratoryFacts()
	facts.Context = "on ECMO"

	verdicts, err := evaluator.Evaluate(context.Background(), facts, testRules())
	if err == nil {
		t.Fatal("backend failure should be reported")
	}
	if len(verdicts) != 3 {
		t.Fatalf("verdicts must survive a backend failure, got %d", len(verdicts))
	}
	if verdicts[0].Status != model.StatusLikelyNotMet {
		t.Error("deterministic verdicts must be unaffected")
	}
}

func TestIneligible_ThresholdAndOverride(t *testing.T) {
	blocking := model.ExclusionVerdict{
		RuleID: "a/general/excl#01", Category: model.RuleBlocking,
		Status: model.StatusLikelyMet, Confidence: 95, RuleText: "x", Evidence: "e",
	}
	lowConfidence := blocking
	lowConfidence.Confidence = 60

	if blocked, _ := Ineligible([]model.ExclusionVerdict{blocking}, 80, false); !blocked {
		t.Error("likely_met blocking at 95 must exclude at threshold 80")
	}
	if blocked, _ := Ineligible([]model.ExclusionVerdict{lowConfidence}, 80, false); blocked {
		t.Error("confidence below threshold must not exclude")
	}

	deptAccept := model.ExclusionVerdict{
		RuleID: "a/picu/accept#01", Department: "picu", Category: model.RuleAdvisoryAccept,
		Status: model.StatusLikelyMet, Confidence: 90, Evidence: "e",
	}
	if blocked, _ := Ineligible([]model.ExclusionVerdict{blocking, deptAccept}, 80, false); blocked {
		t.Error("department accept must override a campus-wide exclusion")
	}

	deptBlocking := blocking
	deptBlocking.Department = "picu"
	if blocked, _ := Ineligible([]model.ExclusionVerdict{deptBlocking, deptAccept}, 80, false); !blocked {
		t.Error("an accept does not override a department-level exclusion")
	}
}

func TestIneligible_StrictMode(t *testing.T) {
	conditional := model.ExclusionVerdict{
		RuleID: "a/picu/cond#01", Department: "picu", Category: model.RuleConditional,
		Status: model.StatusLikelyMet, Confidence: 90, RuleText: "x", Evidence: "e",
	}
	if blocked, _ := Ineligible([]model.ExclusionVerdict{conditional}, 80, false); blocked {
		t.Error("conditional rules are advisory by default")
	}
	if blocked, _ := Ineligible([]model.ExclusionVerdict{conditional}, 80, true); !blocked {
		t.Error("strict mode must block on conditional rules")
	}
}
