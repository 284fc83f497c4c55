package llm

import (
	"context"
	"sync"
)

// MockGenerationClient is a configurable mock for testing generation
// functionality. Set the function fields to control behavior in tests.
type MockGenerationClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns empty string and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// StreamResponseFunc is called when StreamResponse is invoked.
	// If nil, returns nil without sending anything.
	StreamResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64, out chan<- string) error

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	GenerateResponseCalls int
	StreamResponseCalls   int
	Prompts               []string
}

// NewMockGenerationClient creates a new mock with sensible defaults.
func NewMockGenerationClient() *MockGenerationClient {
	return &MockGenerationClient{Model: "mock-model"}
}

// GenerateResponse implements GenerationClient.
func (m *MockGenerationClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	m.GenerateResponseCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// StreamResponse implements GenerationClient.
func (m *MockGenerationClient) StreamResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, out chan<- string) error {
	m.StreamResponseCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.StreamResponseFunc != nil {
		return m.StreamResponseFunc(ctx, prompt, systemMessage, temperature, out)
	}
	return nil
}

// GetModel implements GenerationClient.
func (m *MockGenerationClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Ensure MockGenerationClient implements GenerationClient at compile time.
var _ GenerationClient = (*MockGenerationClient)(nil)

// MockEmbedder is a configurable mock for testing embedding functionality.
// Safe for concurrent use; callers may embed from multiple goroutines.
type MockEmbedder struct {
	// CreateEmbeddingFunc is called when CreateEmbedding is invoked.
	// If nil, returns nil slice and nil error.
	CreateEmbeddingFunc func(ctx context.Context, input string) ([]float32, error)

	// Call tracking for verification
	mu                   sync.Mutex
	CreateEmbeddingCalls int
	Inputs               []string
}

// NewMockEmbedder creates a new mock embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// CreateEmbedding implements Embedder.
func (m *MockEmbedder) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.mu.Lock()
	m.CreateEmbeddingCalls++
	m.Inputs = append(m.Inputs, input)
	m.mu.Unlock()
	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, input)
	}
	return nil, nil
}

// Ensure MockEmbedder implements Embedder at compile time.
var _ Embedder = (*MockEmbedder)(nil)
