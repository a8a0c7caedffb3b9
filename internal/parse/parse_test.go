package parse

import (
	"strings"
	"testing"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestInto_Direct(t *testing.T) {
	var p payload
	outcome, err := Into(`{"name":"a","count":2}`, &p)
	if err != nil {
		t.Fatalf("Into failed: %v", err)
	}
	if outcome.Tier != TierDirect {
		t.Errorf("expected direct tier, got %s", outcome.Tier)
	}
	if p.Name != "a" || p.Count != 2 {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestInto_FencedBlock(t *testing.T) {
	text := "Here is the result:\n```json\n{\"name\":\"b\",\"count\":3}\n```\nDone."
	var p payload
	outcome, err := Into(text, &p)
	if err != nil {
		t.Fatalf("Into failed: %v", err)
	}
	if outcome.Tier != TierFenced {
		t.Errorf("expected fenced tier, got %s", outcome.Tier)
	}
	if p.Name != "b" {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestInto_BracketScan(t *testing.T) {
	text := `The model says {"name":"c {with brace}","count":4} trailing prose`
	var p payload
	outcome, err := Into(text, &p)
	if err != nil {
		t.Fatalf("Into failed: %v", err)
	}
	if outcome.Tier != TierBracket {
		t.Errorf("expected bracket tier, got %s", outcome.Tier)
	}
	if p.Name != "c {with brace}" {
		t.Errorf("braces inside strings broke the scan: %+v", p)
	}
}

func TestInto_EscapedQuotes(t *testing.T) {
	text := `prefix {"name":"says \"hi\"","count":1} suffix`
	var p payload
	if _, err := Into(text, &p); err != nil {
		t.Fatalf("Into failed on escaped quotes: %v", err)
	}
	if p.Name != `says "hi"` {
		t.Errorf("unexpected name: %q", p.Name)
	}
}

func TestInto_Array(t *testing.T) {
	var items []int
	outcome, err := Into("values: [1,2,3] end", &items)
	if err != nil {
		t.Fatalf("Into failed: %v", err)
	}
	if outcome.Tier != TierBracket {
		t.Errorf("expected bracket tier, got %s", outcome.Tier)
	}
	if len(items) != 3 {
		t.Errorf("unexpected items: %v", items)
	}
}

func TestInto_Failure_RetainsRaw(t *testing.T) {
	raw := "no json here at all"
	var p payload
	outcome, err := Into(raw, &p)
	if err == nil {
		t.Fatal("expected error for unparsable text")
	}
	if outcome.Parsed {
		t.Error("outcome should not be marked parsed")
	}
	if outcome.Tier != TierNone {
		t.Errorf("expected none tier, got %s", outcome.Tier)
	}
	if outcome.Raw != raw {
		t.Error("raw text must be retained for diagnostics")
	}
	if !strings.Contains(err.Error(), "no parseable JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInto_UnbalancedBrackets(t *testing.T) {
	var p payload
	if _, err := Into(`{"name":"never closed`, &p); err == nil {
		t.Fatal("expected error for unbalanced JSON")
	}
}
