package phase

import (
	"fmt"
	"strings"

	"ai-lifeplan-be/pkg/interview"
)

// Phase is one stage of the planning interview
type Phase string

const (
	Introduction Phase = "introduction"
	CurrentLife  Phase = "current_life"
	Values       Phase = "values"
	Vision       Phase = "vision"
	Goals        Phase = "goals"
	Challenges   Phase = "challenges"
	ActionPlan   Phase = "action_plan"
	Review       Phase = "review"
	Completed    Phase = "completed"
)

var ordered = []Phase{
	Introduction,
	CurrentLife,
	Values,
	Vision,
	Goals,
	Challenges,
	ActionPlan,
	Review,
	Completed,
}

// All returns the phases in interview order. The slice is a copy.
func All() []Phase {
	out := make([]Phase, len(ordered))
	copy(out, ordered)
	return out
}

// Ordinal is the zero-based position of p, or -1 when p is not a phase.
func (p Phase) Ordinal() int {
	for i, candidate := range ordered {
		if candidate == p {
			return i
		}
	}
	return -1
}

func (p Phase) Valid() bool { return p.Ordinal() >= 0 }

func (p Phase) Terminal() bool { return p == Completed }

func (p Phase) String() string { return string(p) }

// Title is the human-readable phase name.
func (p Phase) Title() string {
	words := strings.Split(string(p), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Parse resolves a wire value. Unknown values are a validation error, never
// silently mapped to a default.
func Parse(raw string) (Phase, error) {
	p := Phase(strings.TrimSpace(raw))
	if !p.Valid() {
		return "", &interview.ValidationError{
			Field:  "phase",
			Reason: fmt.Sprintf("unknown phase %q", raw),
		}
	}
	return p, nil
}

// Next returns the phase after current. From Completed it returns Completed
// and false, every time. An unknown phase is a validation error.
func Next(current Phase) (Phase, bool, error) {
	i := current.Ordinal()
	if i < 0 {
		return "", false, &interview.ValidationError{
			Field:  "phase",
			Reason: fmt.Sprintf("unknown phase %q", string(current)),
		}
	}
	if current.Terminal() {
		return Completed, false, nil
	}
	return ordered[i+1], true, nil
}
