package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/drockthedoc/transfer-center/internal/model"
	"github.com/drockthedoc/transfer-center/internal/oracle"
	"github.com/drockthedoc/transfer-center/internal/rules"
)

// routedClient answers by pipeline stage, keyed on the system prompt, so
// concurrent stages cannot race over a shared response script.
type routedClient struct {
	extraction string
	specialty  string
	exclusion  string
	narrative  string
}

func (c *routedClient) Name() string { return "routed-stub" }

func (c *routedClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch {
	case strings.Contains(systemPrompt, "extraction assistant"):
		return c.extraction, nil
	case strings.Contains(systemPrompt, "triage assistant"):
		return c.specialty, nil
	case strings.Contains(systemPrompt, "exclusion reviewer"):
		return c.exclusion, nil
	case strings.Contains(systemPrompt, "physician assistant"):
		return c.narrative, nil
	}
	return "", errors.New("unexpected prompt")
}

// failingOracle simulates a total travel/bed outage.
type failingOracle struct{}

func (failingOracle) TravelEstimate(ctx context.Context, origin model.Location, campus model.HospitalCampus, mode model.TransportMode) (*model.TravelEstimate, error) {
	return nil, model.ErrOracleUnavailable
}

func (failingOracle) BedCensus(ctx context.Context, campusID string) (*model.BedCensus, error) {
	return nil, model.ErrOracleUnavailable
}

const testRuleStore = `{
	"austin": {
		"general_exclusions": ["Requires active CPR"],
		"age_restrictions": {"maximum": 21}
	},
	"community": {
		"general_exclusions": ["Requires intubation"],
		"age_restrictions": {"maximum": 21}
	}
}`

const testCampuses = `[
	{
		"campus_id": "austin",
		"name": "Austin Campus",
		"location": {"latitude": 30.27, "longitude": -97.74},
		"bed_census": {"total_beds": 200, "available_beds": 20, "icu_beds_total": 24, "icu_beds_available": 4}
	},
	{
		"campus_id": "community",
		"name": "Community Campus",
		"location": {"latitude": 32.78, "longitude": -96.80},
		"bed_census": {"total_beds": 80, "available_beds": 8, "icu_beds_total": 6, "icu_beds_available": 1}
	}
]`

func happyClient() *routedClient {
	return &routedClient{
		extraction: `{
			"symptoms": ["respiratory distress"],
			"medical_problems": ["bronchiolitis"],
			"vital_signs": {"rr": 35, "hr": 145, "spo2": 93, "mental_status": "voice"},
			"demographics": {"age_years": 8},
			"history": "ex-premature, prior PICU admission"
		}`,
		specialty: `{
			"specialties": [
				{"specialty": "Pulmonology", "likelihood": 90, "evidence": "rr 35, spo2 93"},
				{"specialty": "Cardiology", "likelihood": 40, "evidence": "hr 145"}
			],
			"suggested_care_level": "PICU"
		}`,
		exclusion: `{"verdicts": []}`,
		narrative: `{"reason": "respiratory failure risk warrants PICU transfer", "notes": []}`,
	}
}

func testPipeline(t *testing.T, orc oracle.Oracle, client *routedClient) *Pipeline {
	t.Helper()
	store, err := rules.Parse([]byte(testRuleStore))
	if err != nil {
		t.Fatalf("parse rules: %v", err)
	}
	campuses, err := rules.ParseCampuses([]byte(testCampuses))
	if err != nil {
		t.Fatalf("parse campuses: %v", err)
	}
	if orc == nil {
		orc = oracle.NewHaversineOracle(model.DefaultConfig().Oracle, campuses)
	}
	return New(model.DefaultConfig(), client, orc, store, campuses)
}

func testRequest() model.TransferRequest {
	return model.TransferRequest{
		Narrative: "8yo ex-premature with respiratory distress, rr 35, hr 145, spo2 93, responds to voice",
		Origin:    &model.Location{Latitude: 30.5, Longitude: -97.8},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	p := testPipeline(t, nil, happyClient())

	rec, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if rec.RequestID == "" {
		t.Error("request id must be assigned")
	}
	if rec.CampusID == nil {
		t.Fatalf("expected a recommendation, got none: %s", rec.Reason)
	}
	if rec.CareLevel != model.CareLevelPICU {
		t.Errorf("severity scores should demand PICU, got %s", rec.CareLevel)
	}
	if rec.Confidence <= 0 || rec.Confidence > 100 {
		t.Errorf("confidence out of range: %d", rec.Confidence)
	}

	// Every rule for every campus must have exactly one verdict.
	store, _ := rules.Parse([]byte(testRuleStore))
	for _, campusID := range store.Campuses() {
		if got, want := len(rec.Explainability.Verdicts[campusID]), len(store.ForCampus(campusID)); got != want {
			t.Errorf("campus %s: %d verdicts for %d rules", campusID, got, want)
		}
	}

	if rec.Explainability.Specialties.Specialties[0].Name != "Pulmonology" {
		t.Error("specialty ranking lost in the payload")
	}
}

func TestRun_Deterministic(t *testing.T) {
	req := testRequest()
	req.RequestID = "fixed"

	a, err := testPipeline(t, nil, happyClient()).Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := testPipeline(t, nil, happyClient()).Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if *a.CampusID != *b.CampusID || a.Confidence != b.Confidence || a.CareLevel != b.CareLevel {
		t.Error("stub-driven pipeline must be deterministic end to end")
	}
}

func TestRun_OracleOutage(t *testing.T) {
	client := happyClient()
	rec, err := testPipeline(t, failingOracle{}, client).Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("oracle outage must not fail the pipeline: %v", err)
	}
	if rec.CampusID == nil {
		t.Fatal("a recommendation is still expected")
	}
	for id, travel := range rec.Explainability.Travel {
		if travel != nil {
			t.Errorf("campus %s travel should be unknown (nil)", id)
		}
	}

	withOracle, err := testPipeline(t, nil, client).Run(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if rec.Confidence >= withOracle.Confidence {
		t.Errorf("oracle loss must lower confidence: %d vs %d", rec.Confidence, withOracle.Confidence)
	}

	found := false
	for _, d := range rec.Explainability.Degraded {
		if strings.Contains(d, "oracle") {
			found = true
		}
	}
	if !found {
		t.Errorf("oracle outage must be recorded as degraded: %v", rec.Explainability.Degraded)
	}
}

func TestRun_ExtractionFailureDegrades(t *testing.T) {
	client := happyClient()
	client.extraction = "I am sorry, I cannot parse that."

	rec, err := testPipeline(t, nil, client).Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("extraction failure must degrade, not fail: %v", err)
	}

	if !rec.Explainability.Facts.IsEmpty() {
		t.Error("failed extraction must substitute an empty fact set at the synthesizer boundary")
	}
	found := false
	for _, d := range rec.Explainability.Degraded {
		if strings.Contains(d, "extraction") {
			found = true
		}
	}
	if !found {
		t.Errorf("degraded extraction must be recorded: %v", rec.Explainability.Degraded)
	}
}

func TestRun_NilClientRuleOnly(t *testing.T) {
	store, err := rules.Parse([]byte(testRuleStore))
	if err != nil {
		t.Fatalf("parse rules: %v", err)
	}
	campuses, err := rules.ParseCampuses([]byte(testCampuses))
	if err != nil {
		t.Fatalf("parse campuses: %v", err)
	}
	orc := oracle.NewHaversineOracle(model.DefaultConfig().Oracle, campuses)
	p := New(model.DefaultConfig(), nil, orc, store, campuses)

	rec, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("rule-only mode must not fail: %v", err)
	}
	if rec.CampusID == nil {
		t.Fatal("rule-only mode still produces a recommendation")
	}
	if !rec.Explainability.Facts.IsEmpty() {
		t.Error("without a backend no facts can be extracted")
	}

	fallback := false
	for _, n := range rec.Notes {
		if n == model.NoteRuleOnlyFallback {
			fallback = true
		}
	}
	if !fallback {
		t.Errorf("rule-only fallback note missing: %v", rec.Notes)
	}

	// Every rule still gets a verdict from the deterministic tier.
	for _, campusID := range store.Campuses() {
		if got, want := len(rec.Explainability.Verdicts[campusID]), len(store.ForCampus(campusID)); got != want {
			t.Errorf("campus %s: %d verdicts for %d rules", campusID, got, want)
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testPipeline(t, nil, happyClient()).Run(ctx, testRequest()); err == nil {
		t.Fatal("a cancelled context must abort the request")
	}
}
