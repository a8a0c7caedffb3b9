package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/drockthedoc/transfer-center/internal/model"
)

// Recommender runs the decision pipeline for one request.
type Recommender interface {
	Run(ctx context.Context, req model.TransferRequest) (model.Recommendation, error)
}

// RecommendJob is one transfer request in a batch.
type RecommendJob struct {
	Request     model.TransferRequest
	Recommender Recommender
}

// Execute runs the pipeline for this job's request.
func (j *RecommendJob) Execute(ctx context.Context) Result {
	rec, err := j.Recommender.Run(ctx, j.Request)
	return &RecommendResult{
		RequestID:      j.Request.RequestID,
		Recommendation: rec,
		Error:          err,
	}
}

// RecommendResult is the outcome of one batch request.
type RecommendResult struct {
	RequestID      string
	Recommendation model.Recommendation
	Error          error
}

// GetError returns the job error, if any.
func (r *RecommendResult) GetError() error {
	return r.Error
}

// BatchProcessor runs many transfer requests concurrently.
type BatchProcessor struct {
	recommender Recommender
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(recommender Recommender, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		recommender: recommender,
		concurrency: concurrency,
	}
}

// ProcessRequests runs every request through the pool and returns one result
// per request. Requests without an id are assigned one so results can be
// matched back to inputs.
func (b *BatchProcessor) ProcessRequests(ctx context.Context, requests []model.TransferRequest) []*RecommendResult {
	if len(requests) == 0 {
		return []*RecommendResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for i := range requests {
		if requests[i].RequestID == "" {
			requests[i].RequestID = uuid.NewString()
		}
		pool.Submit(&RecommendJob{
			Request:     requests[i],
			Recommender: b.recommender,
		})
	}

	results := pool.Wait()

	out := make([]*RecommendResult, len(results))
	for i, result := range results {
		out[i] = result.(*RecommendResult)
	}
	return out
}

// ProcessFile reads a JSON array of transfer requests and processes them.
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*RecommendResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var requests []model.TransferRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}

	return b.ProcessRequests(ctx, requests), nil
}
