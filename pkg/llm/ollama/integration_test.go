//go:build integration

package ollama

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"ai-lifeplan-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a local Ollama, e.g. OLLAMA_BASE_URL=http://localhost:11434 OLLAMA_MODEL=gemma:2b.
func TestLiveOllama(t *testing.T) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		t.Skip("Skipping integration test: OLLAMA_BASE_URL not set")
	}
	modelName := os.Getenv("OLLAMA_MODEL")
	if modelName == "" {
		modelName = "gemma:2b"
	}
	p := NewOllamaProvider(baseURL, modelName)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	t.Run("Plain reply", func(t *testing.T) {
		out, err := p.Complete(ctx, "You are a concise interviewer.", []llm.Message{
			{Role: llm.RoleUser, Content: "Ask me one question about my values."},
		}, llm.WithTemperature(0.2))
		require.NoError(t, err)
		assert.NotEmpty(t, out)
		t.Logf("reply: %s", out)
	})

	t.Run("JSON reply", func(t *testing.T) {
		out, err := p.Complete(ctx, `Reply only with JSON like {"values":["..."]}.`, []llm.Message{
			{Role: llm.RoleUser, Content: "I care about honesty and my family."},
		}, llm.WithJSON(), llm.WithTemperature(0))
		require.NoError(t, err)

		var parsed map[string]interface{}
		assert.NoError(t, json.Unmarshal([]byte(out), &parsed), out)
	})
}
