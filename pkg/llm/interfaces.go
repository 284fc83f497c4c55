// Package llm provides LLM generation and embedding clients.
package llm

import "context"

// Embedder generates embedding vectors for input text.
// Use this interface for dependency injection to enable mocking in tests.
type Embedder interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// GenerationClient defines the interface for chat completion operations.
// Implementations exist for OpenAI-compatible endpoints and the Anthropic API.
type GenerationClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// StreamResponse generates a chat completion and sends content chunks to out
	// as they arrive. The caller owns the channel and closes it after return.
	StreamResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, out chan<- string) error

	// GetModel returns the configured model name.
	GetModel() string
}
