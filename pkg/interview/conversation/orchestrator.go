// Package conversation runs one interview turn: validation, throttling,
// prompt assembly, the completion call and the phase advancement hint.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/phase"
	"ai-lifeplan-be/pkg/interview/prompt"
	"ai-lifeplan-be/pkg/interview/ratelimit"
	"ai-lifeplan-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const logModule = "CONVERSATION"

const (
	DefaultTimeout     = 60 * time.Second
	DefaultTemperature = 0.7
)

// RateChecker is the part of ratelimit.Limiter a turn needs.
type RateChecker interface {
	Check(ctx context.Context, userId string) ratelimit.Decision
}

// Config zero values take the package defaults. A nil Temperature means
// DefaultTemperature; an explicit 0 is kept.
type Config struct {
	DefaultMode interview.Mode
	Timeout     time.Duration
	Temperature *float64
}

type TurnInput struct {
	UserId          string
	PlanId          string
	Message         string
	Phase           string
	Mode            string
	History         []interview.Message
	DocumentContext string
	PlanContext     string
}

type TurnResult struct {
	Message            string
	Phase              phase.Phase
	SuggestedNextPhase *phase.Phase
	FollowUpQuestions  []string
	Mode               interview.Mode
	RateLimit          ratelimit.Decision
}

// Orchestrator keeps no per-call state; every turn receives its full history.
type Orchestrator struct {
	completion llm.CompletionService
	assembler  *prompt.Assembler
	limiter    RateChecker
	log        logger.ILogger
	cfg         Config
	temperature float64
	now         func() time.Time
}

func NewOrchestrator(completion llm.CompletionService, assembler *prompt.Assembler, limiter RateChecker, log logger.ILogger, cfg Config) *Orchestrator {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = interview.ModeDeep
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	return &Orchestrator{
		completion:  completion,
		assembler:   assembler,
		limiter:     limiter,
		log:         log,
		cfg:         cfg,
		temperature: temperature,
		now:         time.Now,
	}
}

// Turn never retries. Failures come back as *interview.ValidationError,
// *interview.RateLimitedError or *interview.UpstreamError.
func (o *Orchestrator) Turn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	ctx, span := otel.Tracer("ai-lifeplan-be/conversation").Start(ctx, "conversation.Turn")
	defer span.End()

	res, err := o.turn(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("interview.phase", res.Phase.String()),
		attribute.String("interview.mode", string(res.Mode)),
		attribute.Bool("interview.suggest_advance", res.SuggestedNextPhase != nil),
	)
	return res, nil
}

func (o *Orchestrator) turn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	current, err := phase.Parse(in.Phase)
	if err != nil {
		return nil, err
	}
	if len(in.Message) > interview.MaxMessageContentLen {
		return nil, &interview.ValidationError{Field: "message", Reason: fmt.Sprintf("exceeds %d characters", interview.MaxMessageContentLen)}
	}
	message, markerMode, hasMarker := interview.StripModeDirective(in.Message)
	if message == "" {
		return nil, &interview.ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if err := interview.ValidateHistory(in.History); err != nil {
		return nil, err
	}
	mode, err := o.resolveMode(in.Mode, markerMode, hasMarker)
	if err != nil {
		return nil, err
	}

	decision := o.limiter.Check(ctx, in.UserId)
	if !decision.Allowed {
		return nil, &interview.RateLimitedError{Limit: decision.Limit, ResetIn: decision.ResetIn}
	}

	history := cleanHistory(in.History)
	history = append(history, interview.Message{
		Role:      interview.RoleUser,
		Content:   message,
		Timestamp: o.now(),
	})

	systemPrompt, err := o.assembler.Build(prompt.Input{
		Phase:           current,
		Mode:            mode,
		History:         history,
		DocumentContext: in.DocumentContext,
		PlanContext:     in.PlanContext,
	})
	if err != nil {
		return nil, err
	}

	reply, err := o.complete(ctx, systemPrompt, history)
	if err != nil {
		return nil, o.upstreamError(err, in.PlanId, current)
	}

	result := &TurnResult{
		Message:           reply,
		Phase:             current,
		FollowUpQuestions: o.assembler.Rules().FollowUps(current),
		Mode:              mode,
		RateLimit:         decision,
	}
	if next, ok := phase.Suggest(current, reply); ok {
		result.SuggestedNextPhase = &next
	}
	return result, nil
}

// resolveMode prefers an inline marker over the requested mode, and the
// requested mode over the configured default.
func (o *Orchestrator) resolveMode(requested string, marker interview.Mode, hasMarker bool) (interview.Mode, error) {
	if hasMarker {
		return marker, nil
	}
	if strings.TrimSpace(requested) == "" {
		return o.cfg.DefaultMode, nil
	}
	return interview.ParseMode(requested)
}

func (o *Orchestrator) complete(ctx context.Context, systemPrompt string, history []interview.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	messages := make([]llm.Message, len(history))
	for i, msg := range history {
		messages[i] = llm.Message{Role: string(msg.Role), Content: msg.Content}
	}

	reply, err := o.completion.Complete(ctx, systemPrompt, messages, llm.WithTemperature(o.temperature))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && llm.KindOf(err) == llm.KindOther {
			return "", llm.TransportError("completion", fmt.Errorf("%w: %v", ctxErr, err))
		}
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", &llm.Error{Kind: llm.KindOther, Provider: "completion", Err: errors.New("empty reply")}
	}
	return reply, nil
}

func (o *Orchestrator) upstreamError(err error, planId string, current phase.Phase) error {
	upErr := interview.FromCompletion(err)
	details := map[string]interface{}{
		"plan_id": planId,
		"phase":   current.String(),
		"kind":    string(upErr.Kind),
		"error":   err.Error(),
	}
	if upErr.Kind == interview.UpstreamAuth {
		details["alert"] = true
		o.log.Error(logModule, "Completion service rejected credentials", details)
	} else {
		o.log.Warn(logModule, "Completion service failed", details)
	}
	return upErr
}

// cleanHistory copies history with mode markers removed from user turns.
func cleanHistory(history []interview.Message) []interview.Message {
	out := make([]interview.Message, len(history), len(history)+1)
	for i, msg := range history {
		out[i] = msg
		if msg.Role == interview.RoleUser {
			out[i].Content, _, _ = interview.StripModeDirective(msg.Content)
		}
	}
	return out
}
