package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ai-lifeplan-be/pkg/llm"

	"google.golang.org/genai"
)

const providerName = "gemini"

const DefaultModel = "gemini-2.5-flash"

// Provider is a CompletionService backed by the Gemini API.
type Provider struct {
	apiKey string
	model  string

	once   sync.Once
	client *genai.Client
	err    error
}

var _ llm.CompletionService = &Provider{}

// NewProvider defers client creation to the first call so a missing key
// surfaces as a classified auth error on that call.
func NewProvider(apiKey, model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{apiKey: strings.TrimSpace(apiKey), model: model}
}

func (p *Provider) genaiClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		if p.apiKey == "" {
			p.err = llm.MissingCredential(providerName)
			return
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			p.err = &llm.Error{Kind: llm.KindAuth, Provider: providerName, Err: fmt.Errorf("failed to create GenAI client: %w", err)}
			return
		}
		p.client = client
	})
	return p.client, p.err
}

func (p *Provider) Complete(ctx context.Context, systemPrompt string, history []llm.Message, options ...llm.Option) (string, error) {
	client, err := p.genaiClient(ctx)
	if err != nil {
		return "", err
	}

	opts := llm.Apply(llm.Options{Model: p.model, Temperature: 0.7}, options...)

	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == llm.RoleAssistant || msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	temperature := float32(opts.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
	}

	result, err := client.Models.GenerateContent(ctx, opts.Model, contents, config)
	if err != nil {
		return "", classify(err)
	}

	text := result.Text()
	if text == "" {
		return "", &llm.Error{Kind: llm.KindOther, Provider: providerName, Err: errors.New("empty response")}
	}
	return text, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.StatusError(providerName, apiErr.Code, apiErr.Message)
	}
	return llm.TransportError(providerName, err)
}
