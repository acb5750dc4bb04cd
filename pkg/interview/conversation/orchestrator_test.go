package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/phase"
	"ai-lifeplan-be/pkg/interview/prompt"
	"ai-lifeplan-be/pkg/interview/ratelimit"
	"ai-lifeplan-be/pkg/llm"
	"ai-lifeplan-be/pkg/llm/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLimiter struct {
	mu       sync.Mutex
	calls    int
	decision ratelimit.Decision
}

func allowAll() *fakeLimiter {
	return &fakeLimiter{decision: ratelimit.Decision{Allowed: true, Remaining: 19, Limit: 20, ResetIn: time.Minute}}
}

func (f *fakeLimiter) Check(ctx context.Context, userId string) ratelimit.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.decision
}

type blockingCompletion struct{}

func (blockingCompletion) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, options ...llm.Option) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newOrchestrator(completion llm.CompletionService, limiter RateChecker, cfg Config) *Orchestrator {
	return NewOrchestrator(completion, prompt.NewAssembler(prompt.MustDefaultRules()), limiter, logger.NewNopLogger(), cfg)
}

func TestTurnRecallsUserFactsInPrompt(t *testing.T) {
	completion := mock.Texts("You mentioned you work in finance.")
	o := newOrchestrator(completion, allowAll(), Config{})

	res, err := o.Turn(context.Background(), TurnInput{
		UserId:  "user-1",
		PlanId:  "plan-1",
		Message: "What field am I in?",
		Phase:   "current_life",
		History: []interview.Message{
			{Id: "m1", Role: interview.RoleUser, Content: "I live in Vermont and work in finance"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "You mentioned you work in finance.", res.Message)
	assert.Equal(t, interview.ModeDeep, res.Mode)

	calls := completion.Calls()
	require.Len(t, calls, 1)
	layers, err := prompt.NewAssembler(prompt.MustDefaultRules()).Layers(prompt.Input{
		Phase: phase.CurrentLife,
		Mode:  interview.ModeDeep,
		History: []interview.Message{
			{Role: interview.RoleUser, Content: "I live in Vermont and work in finance"},
			{Role: interview.RoleUser, Content: "What field am I in?"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, prompt.LayerFactSummary, layers[1].Name)
	assert.Contains(t, layers[1].Text, "finance")
	sent := calls[0].SystemPrompt
	start := strings.Index(sent, "<"+prompt.LayerFactSummary+">")
	end := strings.Index(sent, "</"+prompt.LayerFactSummary+">")
	require.True(t, start >= 0 && end > start)
	assert.Contains(t, sent[start:end], "I live in Vermont and work in finance")

	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What field am I in?"}, calls[0].Messages[1])
}

func TestTurnStripsModeMarkers(t *testing.T) {
	completion := mock.Texts("Great, let's keep it brief.")
	o := newOrchestrator(completion, allowAll(), Config{})

	res, err := o.Turn(context.Background(), TurnInput{
		UserId:  "user-1",
		Message: "[starting quick mode] I want a plan for next year",
		Phase:   "introduction",
		Mode:    "deep",
		History: []interview.Message{
			{Role: interview.RoleUser, Content: "[Switching to deep mode] hello"},
			{Role: interview.RoleAssistant, Content: "Welcome!"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, interview.ModeQuick, res.Mode)

	msgs := completion.Calls()[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "I want a plan for next year", msgs[2].Content)
	assert.NotContains(t, completion.Calls()[0].SystemPrompt, "starting quick mode")
}

func TestTurnRequestedModeAndDefault(t *testing.T) {
	o := newOrchestrator(mock.Texts("a", "b"), allowAll(), Config{DefaultMode: interview.ModeQuick})

	res, err := o.Turn(context.Background(), TurnInput{Message: "hi", Phase: "values", Mode: "DEEP"})
	require.NoError(t, err)
	assert.Equal(t, interview.ModeDeep, res.Mode)

	res, err = o.Turn(context.Background(), TurnInput{Message: "hi", Phase: "values"})
	require.NoError(t, err)
	assert.Equal(t, interview.ModeQuick, res.Mode)
}

func TestTurnValidation(t *testing.T) {
	tests := []struct {
		name  string
		input TurnInput
		field string
	}{
		{"unknown phase", TurnInput{Message: "hi", Phase: "dreams"}, "phase"},
		{"empty message", TurnInput{Message: "   ", Phase: "values"}, "message"},
		{"marker only", TurnInput{Message: "[starting deep mode]", Phase: "values"}, "message"},
		{"unknown mode", TurnInput{Message: "hi", Phase: "values", Mode: "medium"}, "mode"},
		{"oversized history", TurnInput{Message: "hi", Phase: "values", History: make([]interview.Message, interview.MaxHistoryEntries+1)}, "conversation_history"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := allowAll()
			completion := mock.NewProvider()
			o := newOrchestrator(completion, limiter, Config{})

			_, err := o.Turn(context.Background(), tt.input)
			var vErr *interview.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.False(t, interview.IsRetryable(err))
			assert.Zero(t, limiter.calls)
			assert.Empty(t, completion.Calls())
		})
	}
}

func TestTurnRateLimited(t *testing.T) {
	limiter := &fakeLimiter{decision: ratelimit.Decision{Allowed: false, Limit: 20, ResetIn: 1500 * time.Millisecond}}
	completion := mock.NewProvider()
	o := newOrchestrator(completion, limiter, Config{})

	_, err := o.Turn(context.Background(), TurnInput{UserId: "u", Message: "hi", Phase: "goals"})
	var rl *interview.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 20, rl.Limit)
	assert.Equal(t, 2, rl.ResetInSeconds())
	assert.True(t, interview.IsRetryable(err))
	assert.Empty(t, completion.Calls())
}

func TestTurnSuggestsNextPhase(t *testing.T) {
	rules := prompt.MustDefaultRules()

	o := newOrchestrator(mock.Texts("I have a good understanding of your values. Ready to move on?"), allowAll(), Config{})
	res, err := o.Turn(context.Background(), TurnInput{Message: "family and health", Phase: "values"})
	require.NoError(t, err)
	require.NotNil(t, res.SuggestedNextPhase)
	assert.Equal(t, phase.Vision, *res.SuggestedNextPhase)
	assert.Equal(t, rules.FollowUps(phase.Values), res.FollowUpQuestions)

	o = newOrchestrator(mock.Texts("Tell me more about that."), allowAll(), Config{})
	res, err = o.Turn(context.Background(), TurnInput{Message: "family", Phase: "values"})
	require.NoError(t, err)
	assert.Nil(t, res.SuggestedNextPhase)

	o = newOrchestrator(mock.Texts("We have a comprehensive picture. Shall we continue?"), allowAll(), Config{})
	res, err = o.Turn(context.Background(), TurnInput{Message: "thanks", Phase: "completed"})
	require.NoError(t, err)
	assert.Nil(t, res.SuggestedNextPhase)
}

func TestTurnClassifiesUpstreamFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      interview.UpstreamKind
		retryable bool
		level     zapcore.Level
	}{
		{"missing key", llm.MissingCredential("openai"), interview.UpstreamAuth, false, zapcore.ErrorLevel},
		{"rejected key", llm.StatusError("openai", 401, "bad key"), interview.UpstreamAuth, false, zapcore.ErrorLevel},
		{"upstream 429", llm.StatusError("openai", 429, "slow down"), interview.UpstreamTransient, true, zapcore.WarnLevel},
		{"upstream timeout", llm.StatusError("openai", 504, ""), interview.UpstreamTransient, true, zapcore.WarnLevel},
		{"other", errors.New("boom"), interview.UpstreamOther, true, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			o := NewOrchestrator(
				mock.NewProvider(mock.Reply{Err: tt.err}),
				prompt.NewAssembler(prompt.MustDefaultRules()),
				allowAll(),
				logger.NewFromZap(zap.New(core)),
				Config{},
			)

			_, err := o.Turn(context.Background(), TurnInput{PlanId: "p", Message: "hi", Phase: "goals"})
			var up *interview.UpstreamError
			require.True(t, errors.As(err, &up))
			assert.Equal(t, tt.kind, up.Kind)
			assert.Equal(t, tt.retryable, interview.IsRetryable(err))

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			details := entries[0].ContextMap()["details"].(map[string]interface{})
			if tt.kind == interview.UpstreamAuth {
				assert.Equal(t, true, details["alert"])
			} else {
				assert.NotContains(t, details, "alert")
			}
		})
	}
}

func TestTurnTimeoutIsTransient(t *testing.T) {
	o := newOrchestrator(blockingCompletion{}, allowAll(), Config{Timeout: 20 * time.Millisecond})

	_, err := o.Turn(context.Background(), TurnInput{Message: "hi", Phase: "vision"})
	var up *interview.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, interview.UpstreamTransient, up.Kind)
	assert.True(t, interview.IsRetryable(err))
}

func TestTurnEmptyReplyIsUpstreamFailure(t *testing.T) {
	o := newOrchestrator(mock.Texts("   "), allowAll(), Config{})

	_, err := o.Turn(context.Background(), TurnInput{Message: "hi", Phase: "vision"})
	var up *interview.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, interview.UpstreamOther, up.Kind)
}

func TestTurnDoesNotMutateHistory(t *testing.T) {
	history := []interview.Message{{Role: interview.RoleUser, Content: "[starting quick mode] hi"}}
	o := newOrchestrator(mock.Texts("ok"), allowAll(), Config{})

	_, err := o.Turn(context.Background(), TurnInput{Message: "more", Phase: "introduction", History: history})
	require.NoError(t, err)
	assert.Equal(t, "[starting quick mode] hi", history[0].Content)
	assert.Len(t, history, 1)
}

func TestTurnTemperature(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name string
		cfg  Config
		want float64
	}{
		{"unset uses default", Config{}, DefaultTemperature},
		{"explicit zero is kept", Config{Temperature: &zero}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completion := mock.Texts("Tell me more.")
			o := newOrchestrator(completion, allowAll(), tt.cfg)

			_, err := o.Turn(context.Background(), TurnInput{UserId: "u", Message: "hi", Phase: "introduction"})
			require.NoError(t, err)
			require.Len(t, completion.Calls(), 1)
			assert.Equal(t, tt.want, completion.Calls()[0].Options.Temperature)
		})
	}
}
