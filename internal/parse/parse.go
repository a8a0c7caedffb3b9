// Package parse recovers structured JSON from text-generation responses.
// Every component that calls the text-generation backend goes through the
// same three-tier strategy: direct parse, fenced code block, outermost
// bracket scan. Nothing here ever fabricates a default value on failure.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Tier identifies which recovery tier produced a successful parse.
type Tier string

const (
	TierDirect  Tier = "direct"
	TierFenced  Tier = "fenced"
	TierBracket Tier = "bracket"
	TierNone    Tier = "none"
)

// Outcome is the tagged result of a recovery attempt. Raw always carries the
// original response so a failed parse can be surfaced for diagnostics.
type Outcome struct {
	Parsed bool
	Tier   Tier
	Raw    string
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Into parses a plausibly-JSON-bearing response into v, trying each recovery
// tier in order and stopping at the first success. On failure it returns a
// non-nil error and an Outcome with Parsed=false and the raw text retained.
func Into(text string, v any) (Outcome, error) {
	trimmed := strings.TrimSpace(text)

	// Tier 1: the whole response is JSON.
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return Outcome{Parsed: true, Tier: TierDirect, Raw: text}, nil
	}

	// Tier 2: JSON inside a fenced code block.
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		inner := strings.TrimSpace(m[1])
		if err := json.Unmarshal([]byte(inner), v); err == nil {
			return Outcome{Parsed: true, Tier: TierFenced, Raw: text}, nil
		}
	}

	// Tier 3: outermost matching bracket pair.
	if frag, ok := outermost(trimmed); ok {
		if err := json.Unmarshal([]byte(frag), v); err == nil {
			return Outcome{Parsed: true, Tier: TierBracket, Raw: text}, nil
		}
	}

	return Outcome{Parsed: false, Tier: TierNone, Raw: text},
		fmt.Errorf("no parseable JSON in response (%d bytes)", len(text))
}

// outermost scans for the first '{' or '[' and returns the substring through
// its matching close bracket, tracking string literals and escapes so braces
// inside quoted text do not break the depth count.
func outermost(text string) (string, bool) {
	start := -1
	var open, clos byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start, open, clos = i, '{', '}'
			break
		}
		if text[i] == '[' {
			start, open, clos = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == open:
			depth++
		case !inString && c == clos:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
