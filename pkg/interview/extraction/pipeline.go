// Package extraction turns a finished interview transcript into values, goals
// and tasks with a banded reassessment recommendation.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/prompt"
	"ai-lifeplan-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const logModule = "EXTRACTION"

const (
	DefaultTimeout       = 60 * time.Second
	DefaultTemperature   = 0.2
	DefaultDocumentLimit = 8000
)

const systemPrompt = `You are a planning assistant that converts a life-planning interview into structured data.
Respond with ONLY a JSON object. No markdown, no commentary, no code fences.

The object MUST have exactly these keys:
{
  "values": [
    {"title": string, "description": string, "confidence": number 0..1, "source_quote": string}
  ],
  "goals": [
    {"title": string, "description": string, "parent_value_title": string,
     "measurement_suggestion": string,
     "timeframe_suggestion": "weekly" | "monthly" | "quarterly" | "yearly" | "custom",
     "is_reach_goal": boolean, "confidence": number 0..1, "source_quote": string}
  ],
  "tasks": [
    {"title": string, "description": string, "parent_goal_title": string,
     "confidence": number 0..1, "source_quote": string}
  ],
  "reassessment_recommendation": {"months": integer, "reason": string}
}

Rules:
- Extract only what the user actually said. Never invent values, goals or tasks.
- source_quote must be copied verbatim from a USER line of the transcript.
- parent_value_title must repeat the exact title of a value in this same object, or be "".
- parent_goal_title must repeat the exact title of a goal in this same object. Every task needs one.
- confidence reflects how clearly the user stated the item.`

// Config zero values take the package defaults. A nil Temperature means
// DefaultTemperature; an explicit 0 is kept.
type Config struct {
	Timeout       time.Duration
	Temperature   *float64
	DocumentLimit int
}

// Pipeline holds no state between calls; extracting the same transcript twice
// is safe.
type Pipeline struct {
	completion llm.CompletionService
	log        logger.ILogger
	cfg         Config
	temperature float64
}

func NewPipeline(completion llm.CompletionService, log logger.ILogger, cfg Config) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.DocumentLimit <= 0 {
		cfg.DocumentLimit = DefaultDocumentLimit
	}
	return &Pipeline{completion: completion, log: log, cfg: cfg, temperature: temperature}
}

// Extract returns *interview.ExtractionFailedError when the reply holds no
// parseable object, never a partial result.
func (p *Pipeline) Extract(ctx context.Context, transcript []interview.Message, documentContext string) (*Result, error) {
	ctx, span := otel.Tracer("ai-lifeplan-be/extraction").Start(ctx, "extraction.Extract")
	defer span.End()

	res, err := p.extract(ctx, transcript, documentContext)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("extraction.values", len(res.Values)),
		attribute.Int("extraction.goals", len(res.Goals)),
		attribute.Int("extraction.tasks", len(res.Tasks)),
		attribute.Int("extraction.skipped", len(res.Skipped)),
	)
	return res, nil
}

func (p *Pipeline) extract(ctx context.Context, transcript []interview.Message, documentContext string) (*Result, error) {
	if err := validateTranscript(transcript); err != nil {
		return nil, err
	}

	userPrompt := p.render(transcript, documentContext)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	reply, err := p.completion.Complete(callCtx, systemPrompt,
		[]llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
		llm.WithJSON(), llm.WithTemperature(p.temperature),
	)
	if err != nil {
		upErr := interview.FromCompletion(err)
		details := map[string]interface{}{"kind": string(upErr.Kind), "error": err.Error()}
		if upErr.Kind == interview.UpstreamAuth {
			details["alert"] = true
			p.log.Error(logModule, "Completion service rejected credentials", details)
		} else {
			p.log.Warn(logModule, "Completion service failed", details)
		}
		return nil, upErr
	}

	res, err := Parse(reply)
	if err != nil {
		p.log.Warn(logModule, "Could not parse extraction reply", map[string]interface{}{
			"error":     err.Error(),
			"reply_len": len(reply),
			"preview":   prompt.Truncate(reply, 200),
		})
		return nil, err
	}

	for _, s := range res.Skipped {
		p.log.Warn(logModule, "Entity not saved", map[string]interface{}{
			"kind":   s.Kind,
			"title":  s.Title,
			"reason": s.Reason,
		})
	}
	p.log.Info(logModule, "Extraction complete", map[string]interface{}{
		"values":              len(res.Values),
		"goals":               len(res.Goals),
		"tasks":               len(res.Tasks),
		"skipped":             len(res.Skipped),
		"reassessment_months": res.Reassessment.Months,
	})
	return res, nil
}

func validateTranscript(transcript []interview.Message) error {
	if len(transcript) == 0 {
		return &interview.ValidationError{Field: "transcript", Reason: "must not be empty"}
	}
	hasUser := false
	for i, msg := range transcript {
		switch msg.Role {
		case interview.RoleUser:
			hasUser = true
		case interview.RoleAssistant:
		default:
			return &interview.ValidationError{
				Field:  fmt.Sprintf("transcript[%d].role", i),
				Reason: fmt.Sprintf("unknown role %q", msg.Role),
			}
		}
	}
	if !hasUser {
		return &interview.ValidationError{Field: "transcript", Reason: "has no user messages"}
	}
	return nil
}

// render lays the transcript out as role-labelled lines, with the document
// context first when there is any.
func (p *Pipeline) render(transcript []interview.Message, documentContext string) string {
	var b strings.Builder
	if doc := strings.TrimSpace(documentContext); doc != "" {
		b.WriteString("BACKGROUND DOCUMENTS (context only, extract nothing the user did not confirm):\n")
		b.WriteString(prompt.Truncate(doc, p.cfg.DocumentLimit))
		b.WriteString("\n\n")
	}
	b.WriteString("TRANSCRIPT:\n")
	for _, msg := range transcript {
		content := msg.Content
		label := "ASSISTANT"
		if msg.Role == interview.RoleUser {
			label = "USER"
			content, _, _ = interview.StripModeDirective(content)
		}
		fmt.Fprintf(&b, "%s: %s\n\n", label, strings.TrimSpace(content))
	}
	return strings.TrimRight(b.String(), "\n")
}

// planKeys are the top-level keys of the extraction schema. An object with
// none of them is prose, not a plan.
var planKeys = []string{"values", "goals", "tasks", "reassessment_recommendation"}

// planObject returns the first object in reply that decodes and carries at
// least one plan key. Objects that do not decode are retried from the next
// brace; decoded objects without plan keys are skipped whole.
func planObject(reply string) (fields, error) {
	var decodeErr error
	found := false
	for from := 0; ; {
		start, end, ok := nextObject(reply, from)
		if !ok {
			break
		}
		found = true

		var root fields
		if err := json.Unmarshal([]byte(reply[start:end+1]), &root); err != nil {
			decodeErr = err
			from = start + 1
			continue
		}
		for _, key := range planKeys {
			if _, ok := root[key]; ok {
				return root, nil
			}
		}
		from = end + 1
	}

	switch {
	case !found:
		return nil, &interview.ExtractionFailedError{Reason: "no JSON object in reply"}
	case decodeErr != nil:
		return nil, &interview.ExtractionFailedError{Reason: "malformed JSON object", Err: decodeErr}
	default:
		return nil, &interview.ExtractionFailedError{Reason: "no plan object in reply"}
	}
}

// Parse isolates the plan object in reply, coerces every entity and links the
// hierarchy by exact title.
func Parse(reply string) (*Result, error) {
	root, err := planObject(reply)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Values:  []Value{},
		Goals:   []Goal{},
		Tasks:   []Task{},
		Skipped: []Skipped{},
	}

	values, badValues := objects(root["values"])
	for _, f := range values {
		res.Values = append(res.Values, f.value())
	}
	res.skipInvalid("value", badValues)

	valueTitles := make(map[string]bool, len(res.Values))
	for _, v := range res.Values {
		valueTitles[v.Title] = true
	}

	goals, badGoals := objects(root["goals"])
	for _, f := range goals {
		g := f.goal()
		if !valueTitles[g.ParentValueTitle] {
			g.ParentValueTitle = ""
		}
		res.Goals = append(res.Goals, g)
	}
	res.skipInvalid("goal", badGoals)

	goalTitles := make(map[string]bool, len(res.Goals))
	for _, g := range res.Goals {
		goalTitles[g.Title] = true
	}

	tasks, badTasks := objects(root["tasks"])
	for _, f := range tasks {
		t := f.task()
		if !goalTitles[t.ParentGoalTitle] {
			reason := "missing parent goal"
			if t.ParentGoalTitle != "" {
				reason = fmt.Sprintf("no goal titled %q", t.ParentGoalTitle)
			}
			res.Skipped = append(res.Skipped, Skipped{Kind: "task", Title: t.Title, Reason: reason})
			continue
		}
		res.Tasks = append(res.Tasks, t)
	}
	res.skipInvalid("task", badTasks)

	res.Reassessment = Recommend(res.Goals, root.reassessment())
	return res, nil
}

func (r *Result) skipInvalid(kind string, n int) {
	for i := 0; i < n; i++ {
		r.Skipped = append(r.Skipped, Skipped{Kind: kind, Reason: "entry is not an object"})
	}
}
