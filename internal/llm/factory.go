package llm

import "fmt"

// NewClient creates a client for the configured provider.
func NewClient(config Config) (Client, error) {
	switch config.Provider {
	case "openai", "":
		return NewOpenAIClient(config)
	case "ollama":
		return NewOllamaClient(config)
	case "stub":
		return &StubClient{Responses: []string{"{}"}}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", config.Provider)
	}
}
