package factory

import (
	"fmt"
	"strings"

	"ai-lifeplan-be/pkg/llm"
	"ai-lifeplan-be/pkg/llm/gemini"
	"ai-lifeplan-be/pkg/llm/mock"
	"ai-lifeplan-be/pkg/llm/ollama"
	"ai-lifeplan-be/pkg/llm/openai"
)

const defaultOllamaURL = "http://localhost:11434"

// Settings selects and configures one completion backend.
type Settings struct {
	Provider string // "ollama", "openai", "gemini" or "mock"
	Model    string
	BaseURL  string
	APIKey   string
}

func NewCompletionService(s Settings) (llm.CompletionService, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "ollama":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		return ollama.NewOllamaProvider(strings.TrimRight(baseURL, "/"), s.Model), nil
	case "openai":
		return openai.NewProvider(s.APIKey, s.BaseURL, s.Model), nil
	case "gemini":
		return gemini.NewProvider(s.APIKey, s.Model), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", s.Provider)
	}
}
