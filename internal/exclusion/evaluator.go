// Package exclusion evaluates extracted facts against the per-campus rule
// store. Every rule in scope receives exactly one verdict, in store order.
// Cheap deterministic checks run first; only genuinely ambiguous rules are
// sent to the text-generation backend, batched into one call per campus.
package exclusion

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/drockthedoc/transfer-center/internal/llm"
	"github.com/drockthedoc/transfer-center/internal/model"
	"github.com/drockthedoc/transfer-center/internal/parse"
)

// Deterministic-tier confidence levels. Demographic comparisons are near
// certain; a rule with no textual overlap in the facts is close behind; a
// strong keyword overlap without backend confirmation stays provisional.
const (
	confDemographic  = 95
	confNoMatch      = 90
	confStrongMatch  = 70
	confUnresolvable = 40
)

const evaluateSystemPrompt = `You are a pediatric transfer exclusion reviewer.
For each rule, decide whether the patient described by the facts meets the
exclusion criterion.

Respond with a single JSON object, no prose:
{
  "verdicts": [
    {"rule_id": "...", "status": "likely_met", "confidence": 85, "evidence": "..."}
  ]
}

status is one of likely_met, likely_not_met, uncertain. confidence is 0-100.
evidence must cite the specific facts you relied on. Include every rule.`

// Evaluator judges rules against facts. A nil client disables the backend
// tier, leaving ambiguous rules uncertain.
type Evaluator struct {
	client llm.Client
}

// NewEvaluator creates an evaluator over the given backend.
func NewEvaluator(client llm.Client) *Evaluator {
	return &Evaluator{client: client}
}

// Evaluate returns one verdict per rule, order preserving. A backend failure
// is reported alongside the verdicts: the deterministic verdicts stay valid
// and ambiguous rules remain uncertain, so callers can degrade instead of
// aborting the campus.
func (e *Evaluator) Evaluate(ctx context.Context, facts model.ClinicalFactSet, rules []model.Rule) ([]model.ExclusionVerdict, error) {
	verdicts := make([]model.ExclusionVerdict, len(rules))
	var ambiguous []int

	corpus := factCorpus(facts)
	for i, rule := range rules {
		verdict, resolved := deterministicVerdict(facts, corpus, rule)
		verdicts[i] = verdict
		if !resolved {
			ambiguous = append(ambiguous, i)
		}
	}

	if len(ambiguous) == 0 || e.client == nil {
		return verdicts, nil
	}

	if err := e.refine(ctx, facts, rules, verdicts, ambiguous); err != nil {
		return verdicts, fmt.Errorf("backend rule review: %w", err)
	}
	return verdicts, nil
}

// deterministicVerdict judges a rule without the backend. The second return
// reports whether the verdict is final.
func deterministicVerdict(facts model.ClinicalFactSet, corpus string, rule model.Rule) (model.ExclusionVerdict, bool) {
	verdict := model.ExclusionVerdict{
		RuleID:     rule.ID,
		RuleText:   rule.Text,
		CampusID:   rule.CampusID,
		Department: rule.Department,
		Category:   rule.Category,
	}

	if rule.MinAgeYears != nil || rule.MaxAgeYears != nil ||
		rule.MinWeightKg != nil || rule.MaxWeightKg != nil {
		return demographicVerdict(facts, rule, verdict)
	}

	keywords := ruleKeywords(rule.Text)
	if len(keywords) == 0 {
		verdict.Status = model.StatusUncertain
		verdict.Confidence = confUnresolvable
		verdict.Evidence = "rule text yields no matchable terms"
		return verdict, false
	}

	var matched []string
	for _, kw := range keywords {
		if strings.Contains(corpus, kw) {
			matched = append(matched, kw)
		}
	}

	switch {
	case len(matched) == 0:
		verdict.Status = model.StatusLikelyNotMet
		verdict.Confidence = confNoMatch
		verdict.Evidence = fmt.Sprintf("no mention of %s in extracted facts", strings.Join(sample(keywords, 3), ", "))
		return verdict, true
	case len(matched) >= 2:
		verdict.Status = model.StatusLikelyMet
		verdict.Confidence = confStrongMatch
		verdict.Evidence = "facts mention: " + strings.Join(matched, ", ")
		return verdict, false // provisional, confirm with the backend when available
	default:
		verdict.Status = model.StatusUncertain
		verdict.Confidence = confUnresolvable
		verdict.Evidence = "partial match on: " + matched[0]
		return verdict, false
	}
}

func demographicVerdict(facts model.ClinicalFactSet, rule model.Rule, verdict model.ExclusionVerdict) (model.ExclusionVerdict, bool) {
	check := func(value *float64, min, max *float64, unit string) (model.ExclusionVerdict, bool) {
		if value == nil {
			verdict.Status = model.StatusUncertain
			verdict.Confidence = confUnresolvable
			verdict.Evidence = "patient " + unit + " not stated"
			return verdict, true // the backend cannot invent demographics
		}
		if max != nil && *value > *max {
			verdict.Status = model.StatusLikelyMet
			verdict.Confidence = confDemographic
			verdict.Evidence = fmt.Sprintf("patient %s %g exceeds maximum %g", unit, *value, *max)
			return verdict, true
		}
		if min != nil && *value < *min {
			verdict.Status = model.StatusLikelyMet
			verdict.Confidence = confDemographic
			verdict.Evidence = fmt.Sprintf("patient %s %g is below minimum %g", unit, *value, *min)
			return verdict, true
		}
		verdict.Status = model.StatusLikelyNotMet
		verdict.Confidence = confDemographic
		verdict.Evidence = fmt.Sprintf("patient %s %g is within bounds", unit, *value)
		return verdict, true
	}

	if rule.MinAgeYears != nil || rule.MaxAgeYears != nil {
		return check(facts.Demographics.AgeYears, rule.MinAgeYears, rule.MaxAgeYears, "age")
	}
	return check(facts.Demographics.WeightKg, rule.MinWeightKg, rule.MaxWeightKg, "weight")
}

type verdictWire struct {
	Verdicts []struct {
		RuleID     string `json:"rule_id"`
		Status     string `json:"status"`
		Confidence int    `json:"confidence"`
		Evidence   string `json:"evidence"`
	} `json:"verdicts"`
}

// refine sends the ambiguous rules to the backend in one batched call and
// folds the answers back into the verdict slice.
func (e *Evaluator) refine(ctx context.Context, facts model.ClinicalFactSet, rules []model.Rule, verdicts []model.ExclusionVerdict, ambiguous []int) error {
	factJSON, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}

	var prompt strings.Builder
	prompt.WriteString("FACTS:\n")
	prompt.Write(factJSON)
	prompt.WriteString("\n\nRULES:\n")
	for _, idx := range ambiguous {
		fmt.Fprintf(&prompt, "- id=%s text=%q\n", rules[idx].ID, rules[idx].Text)
	}

	response, err := e.client.Complete(ctx, evaluateSystemPrompt, prompt.String())
	if err != nil {
		return err
	}

	var wire verdictWire
	if _, err := parse.Into(response, &wire); err != nil {
		return err
	}

	byID := map[string]int{}
	for _, idx := range ambiguous {
		byID[rules[idx].ID] = idx
	}
	for _, v := range wire.Verdicts {
		idx, ok := byID[v.RuleID]
		if !ok {
			continue
		}
		status := model.ExclusionStatus(v.Status)
		switch status {
		case model.StatusLikelyMet, model.StatusLikelyNotMet, model.StatusUncertain:
		default:
			continue
		}
		if v.Confidence < 0 || v.Confidence > 100 || strings.TrimSpace(v.Evidence) == "" {
			continue
		}
		verdicts[idx].Status = status
		verdicts[idx].Confidence = v.Confidence
		verdicts[idx].Evidence = v.Evidence
	}
	return nil
}

// Ineligible applies the tie-break policy to a campus's verdicts: a
// department-level accept overrides campus-wide general exclusions, a
// likely_met blocking rule at or above the threshold eliminates the campus,
// and conditional rules block only in strict mode.
func Ineligible(verdicts []model.ExclusionVerdict, threshold int, strict bool) (bool, string) {
	deptAccept := false
	for _, v := range verdicts {
		if v.Category == model.RuleAdvisoryAccept && v.Department != "" && v.Status == model.StatusLikelyMet {
			deptAccept = true
			break
		}
	}

	for _, v := range verdicts {
		if v.Status != model.StatusLikelyMet || v.Confidence < threshold {
			continue
		}
		switch v.Category {
		case model.RuleBlocking:
			if deptAccept && v.Department == "" {
				continue // the more specific department accept wins
			}
			return true, fmt.Sprintf("%s: %s (%s)", v.RuleID, v.RuleText, v.Evidence)
		case model.RuleConditional:
			if strict {
				return true, fmt.Sprintf("%s (strict): %s (%s)", v.RuleID, v.RuleText, v.Evidence)
			}
		}
	}
	return false, ""
}

// Warnings collects the non-blocking likely_met rules for the explainability
// payload.
func Warnings(verdicts []model.ExclusionVerdict) []string {
	var out []string
	for _, v := range verdicts {
		if v.Status != model.StatusLikelyMet {
			continue
		}
		switch v.Category {
		case model.RuleConditional:
			out = append(out, fmt.Sprintf("conditional rule met at %s: %s", v.CampusID, v.RuleText))
		case model.RuleAdvisoryAccept:
			out = append(out, fmt.Sprintf("accept guidance applies at %s: %s", v.CampusID, v.RuleText))
		}
	}
	return out
}

var ruleStopwords = map[string]bool{
	"with": true, "without": true, "requiring": true, "requires": true,
	"require": true, "patient": true, "patients": true, "than": true,
	"that": true, "this": true, "will": true, "have": true, "has": true,
	"been": true, "being": true, "from": true, "into": true, "other": true,
	"any": true, "all": true, "and": true, "for": true, "not": true,
	"the": true, "are": true, "who": true, "greater": true, "less": true,
	"years": true, "age": true, "needs": true, "need": true, "active": true,
	"acute": true, "known": true, "suspected": true, "confirmed": true,
	"unit": true, "care": true, "level": true, "within": true, "hours": true,
	"per": true, "via": true, "due": true, "out": true, "can": true,
	"may": true, "must": true, "non": true,
}

// ruleKeywords reduces rule text to its matchable clinical terms.
func ruleKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		if len(f) < 3 || ruleStopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func factCorpus(facts model.ClinicalFactSet) string {
	var b strings.Builder
	for _, s := range facts.Symptoms {
		b.WriteString(s)
		b.WriteByte(' ')
	}
	for _, p := range facts.Problems {
		b.WriteString(p)
		b.WriteByte(' ')
	}
	for _, m := range facts.Medications {
		b.WriteString(m)
		b.WriteByte(' ')
	}
	for _, u := range facts.Unparsed {
		b.WriteString(u)
		b.WriteByte(' ')
	}
	b.WriteString(facts.History)
	b.WriteByte(' ')
	b.WriteString(facts.Context)
	return strings.ToLower(b.String())
}

func sample(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
