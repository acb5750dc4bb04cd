// Package mock is a deterministic CompletionService for development and tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"ai-lifeplan-be/pkg/llm"
)

// Call records one Complete invocation.
type Call struct {
	SystemPrompt string
	Messages     []llm.Message
	Options      llm.Options
}

// Provider replays scripted replies in order. When the script runs out it
// echoes the last user message. A scripted error is returned instead of a reply.
type Provider struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// Reply is one scripted outcome.
type Reply struct {
	Text string
	Err  error
}

var _ llm.CompletionService = &Provider{}

func NewProvider(replies ...Reply) *Provider {
	return &Provider{replies: replies}
}

// Texts is shorthand for a script with no errors.
func Texts(texts ...string) *Provider {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Text: t}
	}
	return NewProvider(replies...)
}

func (p *Provider) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, options ...llm.Option) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{
		SystemPrompt: systemPrompt,
		Messages:     append([]llm.Message(nil), messages...),
		Options:      llm.Apply(llm.Options{}, options...),
	})
	var next *Reply
	if len(p.replies) > 0 {
		next = &p.replies[0]
		p.replies = p.replies[1:]
	}
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", llm.TransportError("mock", err)
	}
	if next != nil {
		return next.Text, next.Err
	}
	return echo(messages), nil
}

// Calls returns a copy of the recorded invocations.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

func echo(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return fmt.Sprintf("Thank you for sharing that. You said: %q. Could you tell me a little more?", messages[i].Content)
		}
	}
	return "Welcome! What made you want to create a life plan right now?"
}
