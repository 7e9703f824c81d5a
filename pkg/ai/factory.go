package ai

import (
	"fmt"

	"go.uber.org/zap"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GeminiAPIKey string

	OllamaBaseURL string
	OllamaModel   string

	OpenAIAPIKey string
	OpenAIModel  string
}

// NewService creates a Service based on the config.
// This is the factory function - switch AI provider by changing cfg.Provider.
// ProviderAuto builds a fallback chain from whichever providers are configured.
func NewService(cfg Config, logger *zap.Logger) (Service, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		var primary, secondary Service
		if cfg.OpenAIAPIKey != "" {
			primary = NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
		if cfg.GeminiAPIKey != "" {
			if primary == nil {
				primary = NewGeminiService(cfg.GeminiAPIKey)
			} else {
				secondary = NewGeminiService(cfg.GeminiAPIKey)
			}
		}
		if secondary == nil {
			secondary = NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)
		}
		if primary == nil {
			primary = secondary
			secondary = nil
		}
		return NewFallbackService(primary, secondary, logger), nil
	}
}
