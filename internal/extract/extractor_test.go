package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/drockthedoc/transfer-center/internal/llm"
	"github.com/drockthedoc/transfer-center/internal/model"
)

func TestExtract_EmptyNarrative(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{"{}"}}
	extractor := NewExtractor(stub)

	facts, err := extractor.Extract(context.Background(), "   \n  ")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !facts.IsEmpty() {
		t.Error("empty narrative should produce an empty fact set")
	}
	if len(stub.Calls()) != 0 {
		t.Error("empty narrative must not trigger a backend call")
	}
}

func TestExtract_Success(t *testing.T) {
	response := "```json\n" + `{
		"symptoms": ["respiratory distress"],
		"medical_problems": ["bronchiolitis"],
		"medications": ["albuterol"],
		"vital_signs": {"rr": 35, "hr": 145, "spo2": "93%", "bp": "110/70"},
		"demographics": {"age_years": 8, "weight_kg": null, "sex": "female"},
		"history": "ex-premature, prior PICU admission",
		"context": "",
		"unparsed": ["mom reports poor feeding"]
	}` + "\n```"
	stub := &llm.StubClient{Responses: []string{response}}
	extractor := NewExtractor(stub)

	facts, err := extractor.Extract(context.Background(), "4 yo respiratory distress...")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(facts.Symptoms) != 1 || facts.Symptoms[0] != "respiratory distress" {
		t.Errorf("unexpected symptoms: %v", facts.Symptoms)
	}
	if facts.Demographics.AgeYears == nil || *facts.Demographics.AgeYears != 8 {
		t.Errorf("age not parsed: %v", facts.Demographics.AgeYears)
	}
	if facts.Demographics.WeightKg != nil {
		t.Error("null weight must stay nil, not zero")
	}

	rr := facts.VitalSigns["rr"]
	if rr.Number == nil || *rr.Number != 35 {
		t.Errorf("numeric vital lost: %+v", rr)
	}
	spo2 := facts.VitalSigns["spo2"]
	if spo2.Number == nil || *spo2.Number != 93 || spo2.Unit != "%" {
		t.Errorf("percentage vital not normalized: %+v", spo2)
	}
	bp := facts.VitalSigns["bp"]
	if bp.Number != nil || bp.Text != "110/70" || !bp.Raw {
		t.Errorf("compound vital should be retained as raw text: %+v", bp)
	}
	if len(facts.Unparsed) != 1 {
		t.Errorf("unparsed fragments must be carried: %v", facts.Unparsed)
	}
}

func TestExtract_NoFabrication(t *testing.T) {
	// The backend returns only what the narrative states; the extractor must
	// not add anything on top.
	stub := &llm.StubClient{Responses: []string{`{"symptoms":["fever"],"vital_signs":{}}`}}
	extractor := NewExtractor(stub)

	facts, err := extractor.Extract(context.Background(), "febrile infant")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(facts.VitalSigns) != 0 {
		t.Errorf("no vitals stated, none may appear: %v", facts.VitalSigns)
	}
	if facts.Demographics.AgeYears != nil || facts.Demographics.WeightKg != nil {
		t.Error("unstated demographics must stay nil")
	}
}

func TestExtract_UnparsableResponse(t *testing.T) {
	stub := &llm.StubClient{Responses: []string{"I cannot help with that."}}
	extractor := NewExtractor(stub)

	_, err := extractor.Extract(context.Background(), "some narrative")
	if err == nil {
		t.Fatal("unparsable response must fail, not fabricate")
	}
	var extractionErr *model.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %T", err)
	}
	if extractionErr.Raw != "I cannot help with that." {
		t.Errorf("raw response must be retained: %q", extractionErr.Raw)
	}
}

func TestExtract_BackendFailure(t *testing.T) {
	stub := &llm.StubClient{Err: errors.New("connection refused")}
	extractor := NewExtractor(stub)

	_, err := extractor.Extract(context.Background(), "some narrative")
	var extractionErr *model.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtract_NoBackend(t *testing.T) {
	extractor := NewExtractor(nil)

	facts, err := extractor.Extract(context.Background(), "some narrative")
	var extractionErr *model.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError without a backend, got %v", err)
	}
	if !facts.IsEmpty() {
		t.Error("no backend means no extracted facts")
	}
}
