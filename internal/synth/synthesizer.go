// Package synth joins facts, verdicts, scores and logistics into the final
// campus recommendation. Filtering and ranking are fully deterministic; the
// text-generation backend contributes narrative justification only, and its
// failure degrades to a rule-only recommendation rather than an error.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/drockthedoc/transfer-center/internal/confidence"
	"github.com/drockthedoc/transfer-center/internal/exclusion"
	"github.com/drockthedoc/transfer-center/internal/llm"
	"github.com/drockthedoc/transfer-center/internal/model"
	"github.com/drockthedoc/transfer-center/internal/parse"
	"github.com/drockthedoc/transfer-center/internal/score"
)

const narrativeSystemPrompt = `You are a pediatric transfer center physician assistant.
Given the decision artifacts, write a concise clinical justification for the
chosen campus.

Respond with a single JSON object, no prose outside it:
{
  "reason": "one paragraph clinical justification",
  "notes": ["short supporting observations"]
}`

// Artifacts are the joined upstream outputs the synthesizer consumes. Travel
// and Beds entries are nil when the oracle could not answer.
type Artifacts struct {
	Request    model.TransferRequest
	Facts      model.ClinicalFactSet
	Assessment model.SpecialtyAssessment
	Verdicts   map[string][]model.ExclusionVerdict
	Scores     []model.ScoringResult
	Campuses   []model.HospitalCampus
	Travel     map[string]*model.TravelEstimate
	Beds       map[string]*model.BedCensus
	Degraded   []string
	Warnings   []string
}

// Synthesizer produces the final recommendation.
type Synthesizer struct {
	client llm.Client
	config model.PipelineConfig
}

// New creates a synthesizer. A nil client always produces rule-only
// recommendations.
func New(client llm.Client, config model.PipelineConfig) *Synthesizer {
	return &Synthesizer{client: client, config: config}
}

// Synthesize runs filter, rank, narrative and validation. It never fails:
// "no eligible campus" is a valid recommendation, and every degraded path is
// recorded in the explainability payload.
func (s *Synthesizer) Synthesize(ctx context.Context, art Artifacts) model.Recommendation {
	notes := []string{}
	payload := model.NewExplainability()
	if !art.Facts.IsEmpty() || art.Facts.VitalSigns != nil {
		payload.Facts = art.Facts
	}
	if art.Assessment.Specialties != nil {
		payload.Specialties = art.Assessment
	}
	if art.Scores != nil {
		payload.Scores = art.Scores
	}
	payload.Warnings = append(payload.Warnings, art.Warnings...)
	payload.Degraded = append(payload.Degraded, art.Degraded...)
	for id, v := range art.Verdicts {
		payload.Verdicts[id] = v
	}
	for id, t := range art.Travel {
		payload.Travel[id] = t
	}
	for id, b := range art.Beds {
		payload.Beds[id] = b
	}

	careLevel, fromScores := score.RequiredCareLevel(art.Scores)
	switch {
	case fromScores:
		notes = append(notes, fmt.Sprintf("required care level %s derived from severity scores", careLevel))
	case art.Assessment.SuggestedCareLevel != "":
		careLevel = art.Assessment.SuggestedCareLevel
		notes = append(notes, fmt.Sprintf("no severity score computed; using assessed care level %s", careLevel))
		payload.Degraded = append(payload.Degraded, "scoring data was incomplete")
	default:
		careLevel = model.CareLevelGeneral
		notes = append(notes, "no severity score or care level assessment; defaulting to General")
		payload.Degraded = append(payload.Degraded, "scoring data was incomplete")
	}

	candidates, eligible := s.buildCandidates(art, careLevel, &notes)
	payload.Candidates = candidates
	for _, c := range candidates {
		payload.Warnings = append(payload.Warnings, exclusion.Warnings(c.Verdicts)...)
	}

	if len(eligible) == 0 {
		notes = append(notes, "no eligible campus after exclusion and bed filtering")
		conf := confidence.Estimate(confidence.Inputs{
			FactCompleteness: confidence.FactCompleteness(art.Facts),
			ScoringCertainty: confidence.ScoringCertainty(art.Scores),
		})
		return model.Recommendation{
			RequestID:      art.Request.RequestID,
			CareLevel:      careLevel,
			Confidence:     conf,
			Reason:         "no eligible campus was found for the required care level",
			Notes:          notes,
			Explainability: payload,
			CreatedAt:      time.Now().UTC(),
		}
	}

	rankCandidates(eligible, art.Assessment)
	chosen := eligible[0]
	notes = append(notes, fmt.Sprintf("ranked %d eligible campuses; top candidate %s", len(eligible), chosen.Campus.CampusID))

	// Proximity guard: a closer eligible campus must have a recorded reason
	// for losing, otherwise it wins outright.
	if swapped, note := proximityGuard(eligible, art.Assessment); note != "" {
		notes = append(notes, note)
		if swapped {
			chosen = eligible[0]
		}
	}

	reason, narrativeNotes, fallback := s.narrative(ctx, art, chosen, careLevel)
	notes = append(notes, narrativeNotes...)
	if fallback {
		notes = append(notes, model.NoteRuleOnlyFallback)
		payload.Degraded = append(payload.Degraded, "no narrative reasoning was available")
	}

	conf := s.confidenceFor(art, chosen, fallback)

	rec := model.Recommendation{
		RequestID:      art.Request.RequestID,
		CampusID:       &chosen.Campus.CampusID,
		CampusName:     chosen.Campus.Name,
		CareLevel:      careLevel,
		Confidence:     conf,
		Reason:         reason,
		Notes:          notes,
		Explainability: payload,
		CreatedAt:      time.Now().UTC(),
	}

	if len(eligible) > 1 {
		second := eligible[1]
		rec.Backup = &model.BackupRecommendation{
			CampusID:   second.Campus.CampusID,
			CampusName: second.Campus.Name,
			Confidence: s.confidenceFor(art, second, fallback),
		}
	}

	return rec
}

// buildCandidates assembles one candidate per campus in deterministic order
// and applies the eligibility filter: blocking verdicts and known-insufficient
// beds for the required care level. Unknown beds never exclude.
func (s *Synthesizer) buildCandidates(art Artifacts, careLevel model.CareLevel, notes *[]string) ([]model.CampusCandidate, []*model.CampusCandidate) {
	campuses := make([]model.HospitalCampus, len(art.Campuses))
	copy(campuses, art.Campuses)
	sort.Slice(campuses, func(i, j int) bool { return campuses[i].CampusID < campuses[j].CampusID })

	threshold := s.config.BlockingThreshold
	if threshold <= 0 {
		threshold = 80
	}
	strict := s.config.Strict || art.Request.Strict

	candidates := make([]model.CampusCandidate, 0, len(campuses))
	var eligible []*model.CampusCandidate
	for _, campus := range campuses {
		candidate := model.CampusCandidate{
			Campus:   campus,
			Verdicts: art.Verdicts[campus.CampusID],
			Travel:   art.Travel[campus.CampusID],
			Beds:     art.Beds[campus.CampusID],
			Eligible: true,
		}

		if blocked, reason := exclusion.Ineligible(candidate.Verdicts, threshold, strict); blocked {
			candidate.Eligible = false
			candidate.ExclusionReason = reason
			*notes = append(*notes, fmt.Sprintf("campus %s excluded: %s", campus.CampusID, reason))
		} else if candidate.Beds != nil && candidate.Beds.AvailableFor(careLevel) <= 0 {
			candidate.Eligible = false
			candidate.ExclusionReason = fmt.Sprintf("no available beds for care level %s", careLevel)
			*notes = append(*notes, fmt.Sprintf("campus %s excluded: no %s beds available", campus.CampusID, careLevel))
		}

		candidates = append(candidates, candidate)
		if candidates[len(candidates)-1].Eligible {
			eligible = append(eligible, &candidates[len(candidates)-1])
		}
	}
	return candidates, eligible
}

// rankCandidates orders eligible campuses: specialty fit descending, travel
// time ascending (unknown travel last), bed margin descending, campus id.
func rankCandidates(eligible []*model.CampusCandidate, assessment model.SpecialtyAssessment) {
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]

		fitA, fitB := specialtyFit(a, assessment), specialtyFit(b, assessment)
		if fitA != fitB {
			return fitA > fitB
		}

		switch {
		case a.Travel != nil && b.Travel == nil:
			return true
		case a.Travel == nil && b.Travel != nil:
			return false
		case a.Travel != nil && b.Travel != nil && a.Travel.DurationMin != b.Travel.DurationMin:
			return a.Travel.DurationMin < b.Travel.DurationMin
		}

		marginA, marginB := bedMargin(a), bedMargin(b)
		if marginA != marginB {
			return marginA > marginB
		}

		return a.Campus.CampusID < b.Campus.CampusID
	})
}

// specialtyFit scores how well a campus serves the assessed specialties,
// judged from its own rule verdicts: department-level accepts for a needed
// specialty raise the fit, sub-threshold met exclusions in that department
// lower it.
func specialtyFit(c *model.CampusCandidate, assessment model.SpecialtyAssessment) int {
	fit := 0
	for _, sp := range assessment.Specialties {
		needle := strings.ToLower(sp.Name)
		for _, v := range c.Verdicts {
			if v.Department == "" {
				continue
			}
			dept := strings.ToLower(v.Department)
			if !strings.Contains(needle, dept) && !strings.Contains(dept, needle) {
				continue
			}
			if v.Status != model.StatusLikelyMet {
				continue
			}
			switch v.Category {
			case model.RuleAdvisoryAccept:
				fit += 2
			case model.RuleBlocking, model.RuleConditional:
				fit--
			}
		}
	}
	return fit
}

func bedMargin(c *model.CampusCandidate) int {
	if c.Beds == nil {
		return -1 // unknown ranks below any known margin
	}
	return c.Beds.AvailableBeds + c.Beds.ICUBedsAvailable + c.Beds.NICUBedsAvailable
}

// proximityGuard checks the ranked order for a closer eligible campus that
// lost without a recorded reason. A closer campus with equal specialty fit
// has no defensible reason to lose, so it is promoted; otherwise a note
// records why the nearer campus ranked lower.
func proximityGuard(eligible []*model.CampusCandidate, assessment model.SpecialtyAssessment) (bool, string) {
	if len(eligible) < 2 {
		return false, ""
	}
	top := eligible[0]
	if top.Travel == nil {
		return false, ""
	}

	closestIdx := 0
	for i, c := range eligible {
		if c.Travel != nil && c.Travel.DurationMin < eligible[closestIdx].Travel.DurationMin {
			closestIdx = i
		}
	}
	if closestIdx == 0 {
		return false, ""
	}

	closest := eligible[closestIdx]
	if specialtyFit(closest, assessment) >= specialtyFit(top, assessment) {
		// Promote by rotation so the demoted leader stays second and the
		// order of the remaining candidates is preserved.
		copy(eligible[1:closestIdx+1], eligible[:closestIdx])
		eligible[0] = closest
		return true, fmt.Sprintf("proximity guard: promoted closer campus %s over %s", closest.Campus.CampusID, top.Campus.CampusID)
	}
	return false, fmt.Sprintf("closer campus %s ranked lower on specialty fit", closest.Campus.CampusID)
}

type narrativeWire struct {
	Reason string   `json:"reason"`
	Notes  []string `json:"notes"`
}

// narrative asks the backend for a clinical justification. Any failure falls
// back to a deterministic rule-only reason; the bool reports that fallback.
func (s *Synthesizer) narrative(ctx context.Context, art Artifacts, chosen *model.CampusCandidate, careLevel model.CareLevel) (string, []string, bool) {
	ruleOnly := s.ruleOnlyReason(art, chosen, careLevel)
	if s.client == nil {
		return ruleOnly, nil, true
	}

	artifactJSON, err := json.Marshal(map[string]any{
		"facts":       art.Facts,
		"specialties": art.Assessment,
		"scores":      art.Scores,
		"chosen":      chosen,
		"care_level":  careLevel,
	})
	if err != nil {
		return ruleOnly, nil, true
	}

	response, err := s.client.Complete(ctx, narrativeSystemPrompt, string(artifactJSON))
	if err != nil {
		return ruleOnly, nil, true
	}

	var wire narrativeWire
	if _, err := parse.Into(response, &wire); err != nil {
		return ruleOnly, nil, true
	}
	if strings.TrimSpace(wire.Reason) == "" {
		return ruleOnly, nil, true
	}
	return wire.Reason, wire.Notes, false
}

// ruleOnlyReason builds the deterministic justification used when no
// narrative reasoning is available.
func (s *Synthesizer) ruleOnlyReason(art Artifacts, chosen *model.CampusCandidate, careLevel model.CareLevel) string {
	parts := []string{
		fmt.Sprintf("%s selected for %s care", chosen.Campus.Name, careLevel),
	}
	if len(art.Assessment.Specialties) > 0 {
		parts = append(parts, "leading specialty "+art.Assessment.Specialties[0].Name)
	}
	if chosen.Travel != nil {
		parts = append(parts, fmt.Sprintf("estimated %s transport %.0f min", chosen.Travel.Mode, chosen.Travel.DurationMin))
	}
	if chosen.Beds != nil {
		parts = append(parts, fmt.Sprintf("%d beds available for %s", chosen.Beds.AvailableFor(careLevel), careLevel))
	}
	return strings.Join(parts, "; ")
}

func (s *Synthesizer) confidenceFor(art Artifacts, c *model.CampusCandidate, fallback bool) int {
	return confidence.Estimate(confidence.Inputs{
		FactCompleteness:  confidence.FactCompleteness(art.Facts),
		ScoringCertainty:  confidence.ScoringCertainty(art.Scores),
		ExclusionClarity:  confidence.ExclusionClarity(c.Verdicts),
		SpecialtyClarity:  confidence.SpecialtyClarity(art.Assessment),
		TravelKnown:       c.Travel != nil,
		BedsKnown:         c.Beds != nil,
		NarrativeFallback: fallback,
	})
}
