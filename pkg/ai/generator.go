package ai

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (Gemini, OpenAI-compatible) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ProviderConfig selects and configures a generation backend.
type ProviderConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// NewGenerator builds the TextGenerator named by cfg.Provider (gemini by default).
func NewGenerator(ctx context.Context, cfg ProviderConfig) (TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	switch provider {
	case ProviderGemini:
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}
