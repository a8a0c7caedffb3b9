// Package pipeline orchestrates the transfer decision stages: narrative
// extraction and the travel/bed oracle run in parallel, then specialty
// assessment and per-campus exclusion evaluation, then deterministic scoring,
// joined at the synthesizer. Nothing is cached across requests.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/drockthedoc/transfer-center/internal/exclusion"
	"github.com/drockthedoc/transfer-center/internal/extract"
	"github.com/drockthedoc/transfer-center/internal/llm"
	"github.com/drockthedoc/transfer-center/internal/model"
	"github.com/drockthedoc/transfer-center/internal/oracle"
	"github.com/drockthedoc/transfer-center/internal/rules"
	"github.com/drockthedoc/transfer-center/internal/score"
	"github.com/drockthedoc/transfer-center/internal/synth"
)

// Pipeline runs the complete decision process for one transfer request.
type Pipeline struct {
	extractor   *extract.Extractor
	assessor    *extract.SpecialtyAssessor
	evaluator   *exclusion.Evaluator
	synthesizer *synth.Synthesizer
	oracle      oracle.Oracle
	store       *rules.Store
	campuses    []model.HospitalCampus
	config      *model.Config
}

// New wires the pipeline. The client may be nil, which disables every
// narrative stage and produces rule-only recommendations. Each backend call
// gets at most one retry with an unmodified prompt.
func New(cfg *model.Config, client llm.Client, orc oracle.Oracle, store *rules.Store, campuses []model.HospitalCampus) *Pipeline {
	if client != nil {
		client = llm.WithRetry(client)
	}
	return &Pipeline{
		extractor:   extract.NewExtractor(client),
		assessor:    extract.NewSpecialtyAssessor(client),
		evaluator:   exclusion.NewEvaluator(client),
		synthesizer: synth.New(client, cfg.Pipeline),
		oracle:      orc,
		store:       store,
		campuses:    campuses,
		config:      cfg,
	}
}

// Run produces a recommendation for one request. It fails only on context
// cancellation; every component failure degrades into the explainability
// payload instead.
func (p *Pipeline) Run(ctx context.Context, req model.TransferRequest) (model.Recommendation, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if req.Transport == "" {
		req.Transport = model.TransportGround
	}

	var degraded []string

	// Extraction and the oracle are independent; run them in parallel.
	var facts model.ClinicalFactSet
	var extractErr error
	travel := make([]*model.TravelEstimate, len(p.campuses))
	beds := make([]*model.BedCensus, len(p.campuses))
	oracleFailed := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		facts, extractErr = p.extractor.Extract(gctx, req.Narrative)
		return nil
	})
	g.Go(func() error {
		for i, campus := range p.campuses {
			if req.Origin != nil {
				if est, err := p.oracle.TravelEstimate(gctx, *req.Origin, campus, req.Transport); err == nil {
					travel[i] = est
				} else {
					oracleFailed = true
				}
			}
			if census, err := p.oracle.BedCensus(gctx, campus.CampusID); err == nil {
				beds[i] = census
			} else {
				oracleFailed = true
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.Recommendation{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Recommendation{}, fmt.Errorf("request abandoned: %w", err)
	}

	if extractErr != nil {
		// The synthesizer boundary is the only place an empty fact set may
		// stand in for a failed extraction.
		facts = model.EmptyFactSet()
		degraded = append(degraded, fmt.Sprintf("clinical fact extraction failed: %v", extractErr))
	}
	if req.Origin == nil {
		degraded = append(degraded, "no origin location; travel estimates unavailable")
	}
	if oracleFailed {
		degraded = append(degraded, "travel/bed oracle unavailable for one or more campuses")
	}

	// Specialty assessment and per-campus exclusion evaluation share no
	// state; run them concurrently with a bounded worker count.
	var assessment model.SpecialtyAssessment
	var assessErr error
	verdicts := make([][]model.ExclusionVerdict, len(p.campuses))
	evalErrs := make([]error, len(p.campuses))

	g, gctx = errgroup.WithContext(ctx)
	workers := p.config.Pipeline.CampusWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers + 1)

	g.Go(func() error {
		assessment, assessErr = p.assessor.Assess(gctx, facts)
		return nil
	})
	for i := range p.campuses {
		i := i
		g.Go(func() error {
			campusRules := p.store.ForCampus(p.campuses[i].CampusID)
			verdicts[i], evalErrs[i] = p.evaluator.Evaluate(gctx, facts, campusRules)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Recommendation{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Recommendation{}, fmt.Errorf("request abandoned: %w", err)
	}

	if assessErr != nil {
		assessment = model.EmptyAssessment()
		degraded = append(degraded, fmt.Sprintf("specialty assessment unavailable: %v", assessErr))
	}
	for i, err := range evalErrs {
		if err != nil {
			degraded = append(degraded, fmt.Sprintf("exclusion review for %s ran without backend confirmation: %v", p.campuses[i].CampusID, err))
		}
	}

	scores := score.All(score.InputsFromFacts(facts))

	art := synth.Artifacts{
		Request:    req,
		Facts:      facts,
		Assessment: assessment,
		Verdicts:   map[string][]model.ExclusionVerdict{},
		Scores:     scores,
		Campuses:   p.campuses,
		Travel:     map[string]*model.TravelEstimate{},
		Beds:       map[string]*model.BedCensus{},
		Degraded:   degraded,
	}
	for i, campus := range p.campuses {
		art.Verdicts[campus.CampusID] = verdicts[i]
		art.Travel[campus.CampusID] = travel[i]
		art.Beds[campus.CampusID] = beds[i]
	}

	return p.synthesizer.Synthesize(ctx, art), nil
}
