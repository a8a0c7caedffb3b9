package llm

import "context"

// retryClient wraps a Client with the pipeline retry policy: at most one
// retry per call, with an unmodified prompt. This protects against transient
// network errors only; a second failure is treated as permanent and triggers
// the calling component's failure mode.
type retryClient struct {
	inner Client
}

// WithRetry returns a Client that retries each failed call exactly once.
// Components themselves stay retry-free; policy is applied where the pipeline
// wires its clients.
func WithRetry(inner Client) Client {
	return &retryClient{inner: inner}
}

func (r *retryClient) Name() string {
	return r.inner.Name()
}

func (r *retryClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	out, err := r.inner.Complete(ctx, systemPrompt, userPrompt)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		// The caller abandoned the request; do not retry into a dead context.
		return "", err
	}
	return r.inner.Complete(ctx, systemPrompt, userPrompt)
}
