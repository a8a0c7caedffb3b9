package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countJob struct {
	executed *atomic.Int32
	fail     bool
}

type countResult struct {
	err error
}

func (r *countResult) GetError() error { return r.err }

func (j *countJob) Execute(ctx context.Context) Result {
	j.executed.Add(1)
	if j.fail {
		return &countResult{err: errors.New("job failed")}
	}
	return &countResult{}
}

func TestPool_RunsAllJobs(t *testing.T) {
	var executed atomic.Int32
	pool := NewPool(3)
	pool.Start()

	const n = 20
	for i := 0; i < n; i++ {
		pool.Submit(&countJob{executed: &executed})
	}

	results := pool.Wait()
	if len(results) != n {
		t.Errorf("expected %d results, got %d", n, len(results))
	}
	if executed.Load() != n {
		t.Errorf("expected %d executions, got %d", n, executed.Load())
	}
}

func TestPool_CollectsErrors(t *testing.T) {
	var executed atomic.Int32
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&countJob{executed: &executed})
	pool.Submit(&countJob{executed: &executed, fail: true})

	failures := 0
	for _, r := range pool.Wait() {
		if r.GetError() != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failed result, got %d", failures)
	}
}

func TestPool_ZeroWorkersStillWorks(t *testing.T) {
	var executed atomic.Int32
	pool := NewPool(0)
	pool.Start()

	pool.Submit(&countJob{executed: &executed})
	if results := pool.Wait(); len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

type slowJob struct{}

func (slowJob) Execute(ctx context.Context) Result {
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
	return &countResult{}
}

func TestPool_ShutdownCancelsJobs(t *testing.T) {
	pool := NewPool(1)
	pool.Start()
	pool.Submit(slowJob{})

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not cancel the running job")
	}
}
