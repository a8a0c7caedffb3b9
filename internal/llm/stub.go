package llm

import (
	"context"
	"fmt"
	"sync"
)

// StubClient is a deterministic Client for tests and offline runs. Responses
// are served in order; when the script is exhausted the last response
// repeats. A non-nil Err fails every call instead.
type StubClient struct {
	Responses []string
	Err       error

	mu    sync.Mutex
	calls []StubCall
}

// StubCall records one Complete invocation.
type StubCall struct {
	System string
	User   string
}

// Name returns the provider name.
func (s *StubClient) Name() string {
	return "stub"
}

// Complete returns the next scripted response.
func (s *StubClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StubCall{System: systemPrompt, User: userPrompt})

	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", fmt.Errorf("stub has no responses")
	}

	idx := len(s.calls) - 1
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	return s.Responses[idx], nil
}

// Calls returns a copy of the recorded invocations.
func (s *StubClient) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StubCall, len(s.calls))
	copy(out, s.calls)
	return out
}
