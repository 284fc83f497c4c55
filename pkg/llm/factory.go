package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/config"
)

// NewGenerationClient creates the generation client selected by
// ai.provider. The embedding client is always OpenAI-compatible and is
// created separately with NewEmbedder.
func NewGenerationClient(cfg *config.AIConfig, logger *zap.Logger) (GenerationClient, error) {
	switch cfg.Provider {
	case "openai":
		return NewClient(&ClientConfig{
			Endpoint: cfg.LLMBaseURL,
			Model:    cfg.LLMModel,
			APIKey:   cfg.LLMAPIKey,
		}, logger)
	case "anthropic":
		return NewAnthropicClient(cfg.LLMAPIKey, cfg.LLMModel, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewEmbedder creates the embedding client from configuration.
func NewEmbedder(cfg *config.AIConfig, logger *zap.Logger) (Embedder, error) {
	return NewClient(&ClientConfig{
		Endpoint: cfg.EmbeddingBaseURL,
		Model:    cfg.EmbeddingModel,
		APIKey:   cfg.EmbeddingAPIKey,
	}, logger)
}
