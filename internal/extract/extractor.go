// Package extract turns unstructured clinical narrative into structured
// facts via the text-generation backend. Extraction never fabricates: every
// fact in the output is grounded in the narrative, and fragments that do not
// fit the schema are retained verbatim rather than dropped.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/drockthedoc/transfer-center/internal/llm"
	"github.com/drockthedoc/transfer-center/internal/model"
	"github.com/drockthedoc/transfer-center/internal/parse"
)

const extractSystemPrompt = `You are a clinical data extraction assistant for a pediatric transfer center.
Extract ONLY facts explicitly stated in the narrative. Never infer or invent values.

Respond with a single JSON object, no prose, in exactly this shape:
{
  "symptoms": ["..."],
  "medical_problems": ["..."],
  "medications": ["..."],
  "vital_signs": {"hr": 120, "rr": 30, "spo2": "93%", "bp": "100/60", "temp": 38.2},
  "demographics": {"age_years": 4, "weight_kg": 16.5, "sex": "male"},
  "history": "...",
  "context": "...",
  "unparsed": ["fragments that did not fit the schema"]
}

Use null for any demographic not stated. Omit vital signs not stated.
Keep vital values numeric where possible; otherwise keep the original text.
Put anything clinically relevant that fits nowhere else into "unparsed".`

// Extractor runs narrative extraction with one backend call per request.
type Extractor struct {
	client llm.Client
}

// NewExtractor creates an extractor over the given backend.
func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

// factWire is the response shape. Vital and demographic values arrive as
// numbers or strings depending on the model's mood.
type factWire struct {
	Symptoms     []string                   `json:"symptoms"`
	Problems     []string                   `json:"medical_problems"`
	Medications  []string                   `json:"medications"`
	VitalSigns   map[string]json.RawMessage `json:"vital_signs"`
	Demographics struct {
		AgeYears json.RawMessage `json:"age_years"`
		WeightKg json.RawMessage `json:"weight_kg"`
		Sex      string          `json:"sex"`
	} `json:"demographics"`
	History  string   `json:"history"`
	Context  string   `json:"context"`
	Unparsed []string `json:"unparsed"`
}

// Extract produces a fact set for one narrative. An empty narrative yields an
// empty fact set without a backend call. An unparsable response fails with an
// ExtractionError carrying the raw text; only the synthesizer boundary may
// substitute an empty fact set for that.
func (e *Extractor) Extract(ctx context.Context, narrative string) (model.ClinicalFactSet, error) {
	if strings.TrimSpace(narrative) == "" {
		return model.EmptyFactSet(), nil
	}
	if e.client == nil {
		return model.EmptyFactSet(), &model.ExtractionError{Err: errors.New("no text backend configured")}
	}

	response, err := e.client.Complete(ctx, extractSystemPrompt, narrative)
	if err != nil {
		return model.ClinicalFactSet{}, &model.ExtractionError{Err: fmt.Errorf("backend call: %w", err)}
	}

	var wire factWire
	if outcome, err := parse.Into(response, &wire); err != nil {
		return model.ClinicalFactSet{}, &model.ExtractionError{Raw: outcome.Raw, Err: err}
	}

	facts := model.EmptyFactSet()
	facts.Symptoms = append(facts.Symptoms, wire.Symptoms...)
	facts.Problems = append(facts.Problems, wire.Problems...)
	facts.Medications = append(facts.Medications, wire.Medications...)
	facts.History = wire.History
	facts.Context = wire.Context
	facts.Unparsed = append(facts.Unparsed, wire.Unparsed...)
	facts.Demographics.Sex = wire.Demographics.Sex
	facts.Demographics.AgeYears = numericField(wire.Demographics.AgeYears)
	facts.Demographics.WeightKg = numericField(wire.Demographics.WeightKg)

	for key, raw := range wire.VitalSigns {
		facts.VitalSigns[key] = vitalValue(raw)
	}

	return facts, nil
}

// numericField decodes a number-or-string field. Unparsable values are
// treated as absent rather than guessed.
func numericField(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &parsed
		}
	}
	return nil
}

// vitalValue decodes one vital sign, keeping unparsable values as raw text.
func vitalValue(raw json.RawMessage) model.VitalValue {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return model.VitalValue{Number: &n}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Not a number or a string; keep the JSON verbatim.
		return model.VitalValue{Text: string(raw), Raw: true}
	}

	trimmed := strings.TrimSpace(s)
	stripped := strings.TrimSpace(strings.TrimSuffix(trimmed, "%"))
	if parsed, err := strconv.ParseFloat(stripped, 64); err == nil {
		v := model.VitalValue{Number: &parsed, Text: trimmed}
		if strings.HasSuffix(trimmed, "%") {
			v.Unit = "%"
		}
		return v
	}
	return model.VitalValue{Text: trimmed, Raw: true}
}
