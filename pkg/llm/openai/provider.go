// Package openai talks to any OpenAI-compatible chat completions endpoint
// (OpenAI itself, the HuggingFace router, vLLM, LM Studio).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-lifeplan-be/pkg/llm"
)

const providerName = "openai"

const DefaultBaseURL = "https://api.openai.com/v1"

type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.CompletionService = &Provider{}

// Request Payload Structure (OpenAI Compatible)
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewProvider(apiKey, baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 180 * time.Second},
	}
}

func (p *Provider) Complete(ctx context.Context, systemPrompt string, history []llm.Message, options ...llm.Option) (string, error) {
	if p.apiKey == "" {
		return "", llm.MissingCredential(providerName)
	}

	opts := llm.Apply(llm.Options{Model: p.model, MaxTokens: 1500, Temperature: 0.7}, options...)

	messages := make([]llm.Message, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, history...)

	reqBody := chatRequest{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: &opts.Temperature,
	}
	if opts.JSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", llm.TransportError(providerName, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.TransportError(providerName, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", llm.StatusError(providerName, resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", &llm.Error{Kind: llm.KindOther, Provider: providerName, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if chatResp.Error != nil {
		return "", &llm.Error{Kind: llm.KindOther, Provider: providerName, Err: fmt.Errorf("api returned error: %s", chatResp.Error.Message)}
	}

	if len(chatResp.Choices) == 0 {
		return "", &llm.Error{Kind: llm.KindOther, Provider: providerName, Err: fmt.Errorf("empty choices")}
	}

	return chatResp.Choices[0].Message.Content, nil
}
