package model

import (
	"errors"
	"fmt"
)

// ErrOracleUnavailable marks missing travel/bed data. Callers proceed with
// unknown values and lowered confidence; the pipeline never blocks on it.
var ErrOracleUnavailable = errors.New("travel/bed oracle unavailable")

// ExtractionError is returned when a text-generation response could not be
// parsed after all recovery tiers. It carries the raw response for
// diagnostics; a fabricated fact set is never substituted silently.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// MalformedRuleStoreError is fatal at load time. A half-loaded rule set is
// worse than refusing to start.
type MalformedRuleStoreError struct {
	Path string
	Err  error
}

func (e *MalformedRuleStoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed rule store %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("malformed rule store: %v", e.Err)
}

func (e *MalformedRuleStoreError) Unwrap() error { return e.Err }
