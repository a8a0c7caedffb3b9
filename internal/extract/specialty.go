package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/drockthedoc/transfer-center/internal/llm"
	"github.com/drockthedoc/transfer-center/internal/model"
	"github.com/drockthedoc/transfer-center/internal/parse"
)

const specialtySystemPrompt = `You are a pediatric transfer triage assistant.
Given extracted clinical facts, assess which medical specialties this patient
likely needs, with a 0-100 likelihood and the specific evidence for each.

Respond with a single JSON object, no prose:
{
  "specialties": [
    {"specialty": "Pulmonology", "likelihood": 85, "evidence": "rr 35, spo2 93%, increased work of breathing"}
  ],
  "suggested_care_level": "PICU"
}

Only list specialties with explicit supporting evidence in the facts.
suggested_care_level is one of General, Intermediate, ICU, PICU, NICU, or omitted.`

// specialtyKeywords is the deterministic taxonomy screen. It validates the
// backend's output: a specialty without evidence can survive only if the
// screen finds matching terms in the facts.
var specialtyKeywords = map[string][]string{
	"Cardiology":         {"cardiac", "heart", "cardiovascular", "arrhythmia", "cardiomyopathy", "congenital heart"},
	"Pulmonology":        {"respiratory", "breathing", "lung", "airway", "ventilator", "asthma", "bronchiolitis", "pneumonia", "bipap", "cpap", "oxygen"},
	"Neurology":          {"seizure", "stroke", "neurological", "brain", "encephalopathy", "meningitis", "eeg"},
	"Infectious Disease": {"infection", "sepsis", "meningitis", "cellulitis", "abscess", "bacterial", "viral"},
	"Oncology":           {"cancer", "tumor", "leukemia", "lymphoma", "malignancy", "chemotherapy"},
	"Hematology":         {"anemia", "transfusion", "thrombosis", "bleeding", "coagulation", "sickle"},
	"Endocrinology":      {"diabetes", "diabetic", "dka", "thyroid", "adrenal", "insulin"},
	"Gastroenterology":   {"liver", "intestinal", "bowel", "gastrointestinal", "pancreatic", "hepatic"},
	"Nephrology":         {"renal", "kidney", "dialysis", "creatinine"},
	"Surgery":            {"surgical", "post-op", "operative", "appendicitis", "obstruction"},
	"Trauma":             {"trauma", "injury", "fracture", "burn", "accident"},
	"Psychiatry":         {"psychiatric", "behavioral", "psychosis", "suicidal"},
	"Transplant":         {"transplant", "rejection", "graft", "immunosuppression"},
}

// SpecialtyAssessor ranks the specialties a patient likely needs. The
// assessment is advisory: failures degrade to an empty assessment instead of
// failing the pipeline.
type SpecialtyAssessor struct {
	client llm.Client
}

// NewSpecialtyAssessor creates an assessor over the given backend.
func NewSpecialtyAssessor(client llm.Client) *SpecialtyAssessor {
	return &SpecialtyAssessor{client: client}
}

// Assess produces a likelihood-ranked specialty list for the fact set.
// Entries without evidence are dropped unless the keyword screen can supply
// it; duplicate names keep the higher likelihood.
func (a *SpecialtyAssessor) Assess(ctx context.Context, facts model.ClinicalFactSet) (model.SpecialtyAssessment, error) {
	if facts.IsEmpty() {
		return model.EmptyAssessment(), nil
	}
	if a.client == nil {
		return model.EmptyAssessment(), errors.New("no text backend configured")
	}

	factJSON, err := json.Marshal(facts)
	if err != nil {
		return model.EmptyAssessment(), fmt.Errorf("marshal facts: %w", err)
	}

	response, err := a.client.Complete(ctx, specialtySystemPrompt, string(factJSON))
	if err != nil {
		return model.EmptyAssessment(), fmt.Errorf("backend call: %w", err)
	}

	var wire model.SpecialtyAssessment
	if _, err := parse.Into(response, &wire); err != nil {
		return model.EmptyAssessment(), fmt.Errorf("specialty response: %w", err)
	}

	screen := screenMatches(facts)

	seen := map[string]int{} // name -> index into out
	out := model.EmptyAssessment()
	out.SuggestedCareLevel = wire.SuggestedCareLevel
	for _, sp := range wire.Specialties {
		name := strings.TrimSpace(sp.Name)
		if name == "" {
			continue
		}
		if sp.Likelihood < 0 {
			sp.Likelihood = 0
		}
		if sp.Likelihood > 100 {
			sp.Likelihood = 100
		}
		if strings.TrimSpace(sp.Evidence) == "" {
			matched, ok := screen[name]
			if !ok {
				continue
			}
			sp.Evidence = "matched terms: " + strings.Join(matched, ", ")
		}
		if idx, ok := seen[name]; ok {
			if sp.Likelihood > out.Specialties[idx].Likelihood {
				out.Specialties[idx] = model.Specialty{Name: name, Likelihood: sp.Likelihood, Evidence: sp.Evidence}
			}
			continue
		}
		seen[name] = len(out.Specialties)
		out.Specialties = append(out.Specialties, model.Specialty{Name: name, Likelihood: sp.Likelihood, Evidence: sp.Evidence})
	}

	sort.SliceStable(out.Specialties, func(i, j int) bool {
		if out.Specialties[i].Likelihood != out.Specialties[j].Likelihood {
			return out.Specialties[i].Likelihood > out.Specialties[j].Likelihood
		}
		return out.Specialties[i].Name < out.Specialties[j].Name
	})

	return out, nil
}

// screenMatches runs the keyword taxonomy over the textual facts and returns
// the matched terms per specialty.
func screenMatches(facts model.ClinicalFactSet) map[string][]string {
	var corpus strings.Builder
	for _, s := range facts.Symptoms {
		corpus.WriteString(s)
		corpus.WriteByte(' ')
	}
	for _, p := range facts.Problems {
		corpus.WriteString(p)
		corpus.WriteByte(' ')
	}
	corpus.WriteString(facts.History)
	corpus.WriteByte(' ')
	corpus.WriteString(facts.Context)
	text := strings.ToLower(corpus.String())

	matches := map[string][]string{}
	for specialty, keywords := range specialtyKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matches[specialty] = append(matches[specialty], kw)
			}
		}
	}
	return matches
}
