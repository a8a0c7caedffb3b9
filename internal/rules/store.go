// Package rules loads the exclusion rule store and hospital capability data.
// The store is read-only after load and safe for unsynchronized concurrent
// reads; any shape problem at load time is fatal before a single request is
// processed.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/drockthedoc/transfer-center/internal/model"
)

// Store is the immutable, flattened exclusion rule set.
type Store struct {
	rules    []model.Rule
	byCampus map[string][]model.Rule
}

// deptSection is one department block in the rule file. Unknown keys are
// ignored by the decoder, per the input contract.
type deptSection struct {
	Exclusions            []string `json:"exclusions"`
	Conditions            []string `json:"conditions"`
	Accept                []string `json:"accept"`
	ClinicalTeamDecision  []string `json:"clinical_team_decision"`
	ACExclusionPICUAccept []string `json:"ac_exclusion_picu_accept"`
	Notes                 string   `json:"notes"`
}

type ageRestrictions struct {
	Minimum *float64 `json:"minimum"`
	Maximum *float64 `json:"maximum"`
}

type weightRestrictions struct {
	Minimum *float64 `json:"minimum"`
	Maximum *float64 `json:"maximum"`
}

// Load reads and parses a rule store file. Any error is a
// MalformedRuleStoreError and must abort startup.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.MalformedRuleStoreError{Path: path, Err: err}
	}
	store, err := Parse(data)
	if err != nil {
		return nil, &model.MalformedRuleStoreError{Path: path, Err: err}
	}
	return store, nil
}

// Parse builds a Store from raw rule JSON: campus → department → rule lists,
// with per-campus general_exclusions, age_restrictions and weight_restrictions
// alongside the departments.
func Parse(data []byte) (*Store, error) {
	var campuses map[string]json.RawMessage
	if err := json.Unmarshal(data, &campuses); err != nil {
		return nil, fmt.Errorf("top level is not a JSON object: %w", err)
	}

	store := &Store{byCampus: map[string][]model.Rule{}}

	campusIDs := make([]string, 0, len(campuses))
	for id := range campuses {
		campusIDs = append(campusIDs, id)
	}
	sort.Strings(campusIDs)

	for _, campusID := range campusIDs {
		var sections map[string]json.RawMessage
		if err := json.Unmarshal(campuses[campusID], &sections); err != nil {
			return nil, fmt.Errorf("campus %q is not a JSON object: %w", campusID, err)
		}
		campusRules, err := parseCampus(campusID, sections)
		if err != nil {
			return nil, err
		}
		store.rules = append(store.rules, campusRules...)
		store.byCampus[campusID] = campusRules
	}

	return store, nil
}

func parseCampus(campusID string, sections map[string]json.RawMessage) ([]model.Rule, error) {
	var out []model.Rule

	// Campus-wide rules come first so department verdicts can override them.
	if raw, ok := sections["general_exclusions"]; ok {
		var texts []string
		if err := json.Unmarshal(raw, &texts); err != nil {
			return nil, fmt.Errorf("campus %q general_exclusions: %w", campusID, err)
		}
		for i, text := range texts {
			out = append(out, model.Rule{
				ID:       fmt.Sprintf("%s/general/excl#%02d", campusID, i+1),
				CampusID: campusID,
				Text:     text,
				Category: model.RuleBlocking,
			})
		}
	}

	if raw, ok := sections["age_restrictions"]; ok {
		var ar ageRestrictions
		if err := json.Unmarshal(raw, &ar); err != nil {
			return nil, fmt.Errorf("campus %q age_restrictions: %w", campusID, err)
		}
		if ar.Maximum != nil || ar.Minimum != nil {
			rule := model.Rule{
				ID:          fmt.Sprintf("%s/general/age#01", campusID),
				CampusID:    campusID,
				Category:    model.RuleBlocking,
				MinAgeYears: ar.Minimum,
				MaxAgeYears: ar.Maximum,
			}
			switch {
			case ar.Maximum != nil && ar.Minimum != nil:
				rule.Text = fmt.Sprintf("Age outside %g to %g years", *ar.Minimum, *ar.Maximum)
			case ar.Maximum != nil:
				rule.Text = fmt.Sprintf("Greater than %g years of age", *ar.Maximum)
			default:
				rule.Text = fmt.Sprintf("Less than %g years of age", *ar.Minimum)
			}
			out = append(out, rule)
		}
	}

	if raw, ok := sections["weight_restrictions"]; ok {
		var wr weightRestrictions
		if err := json.Unmarshal(raw, &wr); err != nil {
			return nil, fmt.Errorf("campus %q weight_restrictions: %w", campusID, err)
		}
		if wr.Minimum != nil || wr.Maximum != nil {
			rule := model.Rule{
				ID:          fmt.Sprintf("%s/general/weight#01", campusID),
				CampusID:    campusID,
				Category:    model.RuleBlocking,
				MinWeightKg: wr.Minimum,
				MaxWeightKg: wr.Maximum,
			}
			switch {
			case wr.Minimum != nil && wr.Maximum != nil:
				rule.Text = fmt.Sprintf("Weight outside %g to %g kg", *wr.Minimum, *wr.Maximum)
			case wr.Minimum != nil:
				rule.Text = fmt.Sprintf("Weight below %g kg", *wr.Minimum)
			default:
				rule.Text = fmt.Sprintf("Weight above %g kg", *wr.Maximum)
			}
			out = append(out, rule)
		}
	}

	deptNames := make([]string, 0, len(sections))
	for name, raw := range sections {
		switch name {
		case "general_exclusions", "age_restrictions", "weight_restrictions":
			continue
		}
		// Extra keys that are not department objects are ignored, not rejected.
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		deptNames = append(deptNames, name)
	}
	sort.Strings(deptNames)

	for _, dept := range deptNames {
		var section deptSection
		if err := json.Unmarshal(sections[dept], &section); err != nil {
			return nil, fmt.Errorf("campus %q department %q: %w", campusID, dept, err)
		}
		out = append(out, deptRules(campusID, dept, section)...)
	}

	return out, nil
}

func deptRules(campusID, dept string, section deptSection) []model.Rule {
	var out []model.Rule
	add := func(tag string, category model.RuleCategory, texts []string) {
		for i, text := range texts {
			out = append(out, model.Rule{
				ID:         fmt.Sprintf("%s/%s/%s#%02d", campusID, dept, tag, i+1),
				CampusID:   campusID,
				Department: dept,
				Text:       text,
				Category:   category,
			})
		}
	}
	add("excl", model.RuleBlocking, section.Exclusions)
	add("cond", model.RuleConditional, section.Conditions)
	add("ctd", model.RuleConditional, section.ClinicalTeamDecision)
	add("accept", model.RuleAdvisoryAccept, section.Accept)
	add("picu-accept", model.RuleAdvisoryAccept, section.ACExclusionPICUAccept)
	return out
}

// All returns every rule in deterministic order: campuses sorted by id, then
// campus-wide rules, then departments sorted by name.
func (s *Store) All() []model.Rule {
	return s.rules
}

// ForCampus returns the ordered rules scoped to one campus. The slice is
// shared; callers must not mutate it.
func (s *Store) ForCampus(campusID string) []model.Rule {
	return s.byCampus[campusID]
}

// Campuses returns the sorted campus ids present in the store.
func (s *Store) Campuses() []string {
	ids := make([]string, 0, len(s.byCampus))
	for id := range s.byCampus {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the total rule count.
func (s *Store) Len() int {
	return len(s.rules)
}
