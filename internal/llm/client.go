package llm

import (
	"context"

	"github.com/drockthedoc/transfer-center/internal/model"
)

// Client is the text-generation backend interface. The pipeline never assumes
// anything about the response format beyond "plausibly contains one JSON
// object"; recovery is the caller's job via the parse package.
type Client interface {
	// Name returns the provider name.
	Name() string

	// Complete issues one blocking text-generation call. The call honors
	// context cancellation and the configured per-call timeout.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds provider configuration.
type Config struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	Timeout           int // seconds
	MaxTokens         int
	Temperature       float32
	RequestsPerSecond float64
	Burst             int
}

// FromModel converts the application config section into a provider config.
func FromModel(cfg model.LLMConfig) Config {
	return Config{
		Provider:          cfg.Provider,
		Model:             cfg.Model,
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.TimeoutSeconds,
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}
}
