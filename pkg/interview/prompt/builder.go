package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/phase"
)

// Layer names, in the order they are emitted. Earlier layers weigh more with
// the model, so the order is part of correctness.
const (
	LayerAccuracy       = "accuracy_rules"
	LayerFactSummary    = "user_facts"
	LayerAntiRepetition = "recent_assistant_turns"
	LayerBackground     = "background_documents"
	LayerPersona        = "persona"
	LayerCrossPhase     = "cross_phase_rules"
	LayerPhase          = "phase_instructions"
)

// recentAssistantTurns is how many assistant replies the anti-repetition layer quotes.
const recentAssistantTurns = 4

const truncationMarker = "\n[... truncated]"

// Layer is one named block of the system prompt.
type Layer struct {
	Name string
	Text string
}

func (l Layer) render() string {
	return fmt.Sprintf("<%s>\n%s\n</%s>", l.Name, strings.TrimSpace(l.Text), l.Name)
}

// Input is everything one prompt depends on.
type Input struct {
	Phase           phase.Phase
	Mode            interview.Mode
	History         []interview.Message
	DocumentContext string
	PlanContext     string
}

// Assembler builds the system prompt for one completion call. It holds only
// the immutable rule book, so Build is a pure function of its input.
type Assembler struct {
	rules *Rules
}

func NewAssembler(rules *Rules) *Assembler {
	return &Assembler{rules: rules}
}

func (a *Assembler) Rules() *Rules { return a.rules }

// Build renders every applicable layer in priority order.
func (a *Assembler) Build(in Input) (string, error) {
	layers, err := a.Layers(in)
	if err != nil {
		return "", err
	}
	rendered := make([]string, len(layers))
	for i, l := range layers {
		rendered[i] = l.render()
	}
	return strings.Join(rendered, "\n\n"), nil
}

// Layers returns the layers Build would render, without rendering them.
func (a *Assembler) Layers(in Input) ([]Layer, error) {
	if !in.Phase.Valid() {
		return nil, &interview.ValidationError{Field: "phase", Reason: fmt.Sprintf("unknown phase %q", in.Phase)}
	}
	if in.Mode != interview.ModeQuick && in.Mode != interview.ModeDeep {
		return nil, &interview.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", in.Mode)}
	}

	layers := []Layer{{Name: LayerAccuracy, Text: a.rules.Accuracy}}

	if l, ok := a.factSummary(in.History); ok {
		layers = append(layers, l)
	}
	if l, ok := a.antiRepetition(in.History); ok {
		layers = append(layers, l)
	}
	if l, ok := a.background(in.DocumentContext, in.PlanContext); ok {
		layers = append(layers, l)
	}

	layers = append(layers,
		Layer{Name: LayerPersona, Text: strings.TrimSpace(a.rules.Persona) + "\n\n" + a.rules.Modes[string(in.Mode)]},
		Layer{Name: LayerCrossPhase, Text: a.rules.SkipRules},
		Layer{Name: LayerPhase, Text: a.rules.Phases[string(in.Phase)].forMode(in.Mode)},
	)
	return layers, nil
}

// factSummary quotes every user turn. With fewer than two messages there is
// nothing worth summarizing yet.
func (a *Assembler) factSummary(history []interview.Message) (Layer, bool) {
	if len(history) < 2 {
		return Layer{}, false
	}
	var statements []string
	for _, msg := range history {
		if msg.Role != interview.RoleUser {
			continue
		}
		content, _, _ := interview.StripModeDirective(msg.Content)
		if content == "" {
			continue
		}
		statements = append(statements, content)
	}
	if len(statements) == 0 {
		return Layer{}, false
	}
	return Layer{Name: LayerFactSummary, Text: delimited(a.rules.FactSummary, statements)}, true
}

func (a *Assembler) antiRepetition(history []interview.Message) (Layer, bool) {
	var replies []string
	for i := len(history) - 1; i >= 0 && len(replies) < recentAssistantTurns; i-- {
		if history[i].Role == interview.RoleAssistant && strings.TrimSpace(history[i].Content) != "" {
			replies = append(replies, history[i].Content)
		}
	}
	if len(replies) == 0 {
		return Layer{}, false
	}
	// collected newest first, quoted oldest first
	for i, j := 0, len(replies)-1; i < j; i, j = i+1, j-1 {
		replies[i], replies[j] = replies[j], replies[i]
	}
	return Layer{Name: LayerAntiRepetition, Text: delimited(a.rules.AntiRepetition, replies)}, true
}

func (a *Assembler) background(documentContext, planContext string) (Layer, bool) {
	documentContext = strings.TrimSpace(documentContext)
	planContext = strings.TrimSpace(planContext)
	if documentContext == "" && planContext == "" {
		return Layer{}, false
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.rules.Document.Instruction))
	if documentContext != "" {
		b.WriteString("\n\n")
		b.WriteString(Truncate(documentContext, a.rules.Document.MaxChars))
	}
	if planContext != "" {
		b.WriteString("\n\n")
		b.WriteString(a.rules.Document.PlanContextLabel)
		b.WriteString(":\n")
		b.WriteString(Truncate(planContext, a.rules.Document.MaxChars))
	}
	return Layer{Name: LayerBackground, Text: b.String()}, true
}

func delimited(block DelimitedBlock, entries []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(block.Instruction))
	b.WriteString("\n")
	b.WriteString(block.Open)
	for i, entry := range entries {
		fmt.Fprintf(&b, "\n[%d] %s", i+1, entry)
	}
	b.WriteString("\n")
	b.WriteString(block.Close)
	return b.String()
}

// Truncate bounds s to limit runes, marking the cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:limit]), func(r rune) bool { return r == ' ' || r == '\n' }) + truncationMarker
}
