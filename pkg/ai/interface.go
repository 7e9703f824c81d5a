package ai

import "context"

// Service is the boundary to the external text-generation provider.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type Service interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderOpenAI ProviderType = "openai"
	ProviderAuto   ProviderType = "auto"
)
