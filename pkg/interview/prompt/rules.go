package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/phase"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rules is the static text the assembler draws from. It is data, not code,
// so each layer can be swapped and tested on its own.
type Rules struct {
	Accuracy       string                `yaml:"accuracy"`
	FactSummary    DelimitedBlock        `yaml:"fact_summary"`
	AntiRepetition DelimitedBlock        `yaml:"anti_repetition"`
	Document       DocumentRules         `yaml:"document"`
	Persona        string                `yaml:"persona"`
	Modes          map[string]string     `yaml:"modes"`
	SkipRules      string                `yaml:"skip_rules"`
	Phases         map[string]PhaseRules `yaml:"phases"`
}

// DelimitedBlock is an instruction followed by verbatim content between markers.
type DelimitedBlock struct {
	Instruction string `yaml:"instruction"`
	Open        string `yaml:"open"`
	Close       string `yaml:"close"`
}

type DocumentRules struct {
	Instruction      string `yaml:"instruction"`
	PlanContextLabel string `yaml:"plan_context_label"`
	MaxChars         int    `yaml:"max_chars"`
}

// PhaseRules holds the per-mode instructions and static follow-up suggestions
// for one phase.
type PhaseRules struct {
	FollowUps []string `yaml:"follow_ups"`
	Quick     string   `yaml:"quick"`
	Deep      string   `yaml:"deep"`
}

func (pr PhaseRules) forMode(mode interview.Mode) string {
	if mode == interview.ModeQuick {
		return pr.Quick
	}
	return pr.Deep
}

// DefaultRules parses the embedded rule book.
func DefaultRules() (*Rules, error) {
	return LoadRules(bytes.NewReader(defaultRules))
}

// MustDefaultRules panics when the embedded rule book is broken. It is only
// broken when the binary was built from a bad rules.yaml.
func MustDefaultRules() *Rules {
	r, err := DefaultRules()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRules parses and validates a rule book.
func LoadRules(r io.Reader) (*Rules, error) {
	var rules Rules
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil {
		return nil, fmt.Errorf("decode prompt rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// Validate checks that every phase has both mode texts and that the fixed
// layers are present.
func (r *Rules) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Accuracy) == "" {
		missing = append(missing, "accuracy")
	}
	if strings.TrimSpace(r.Persona) == "" {
		missing = append(missing, "persona")
	}
	if strings.TrimSpace(r.SkipRules) == "" {
		missing = append(missing, "skip_rules")
	}
	for _, mode := range []interview.Mode{interview.ModeQuick, interview.ModeDeep} {
		if strings.TrimSpace(r.Modes[string(mode)]) == "" {
			missing = append(missing, "modes."+string(mode))
		}
	}
	for _, p := range phase.All() {
		pr, ok := r.Phases[string(p)]
		if !ok {
			missing = append(missing, "phases."+string(p))
			continue
		}
		if strings.TrimSpace(pr.Quick) == "" {
			missing = append(missing, "phases."+string(p)+".quick")
		}
		if strings.TrimSpace(pr.Deep) == "" {
			missing = append(missing, "phases."+string(p)+".deep")
		}
	}
	for key := range r.Phases {
		if !phase.Phase(key).Valid() {
			return fmt.Errorf("prompt rules: unknown phase %q", key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("prompt rules: missing %s", strings.Join(missing, ", "))
	}
	if r.Document.MaxChars <= 0 {
		return fmt.Errorf("prompt rules: document.max_chars must be positive")
	}
	return nil
}

// FollowUps returns the static suggestions for p. The slice is a copy.
func (r *Rules) FollowUps(p phase.Phase) []string {
	pr := r.Phases[string(p)]
	out := make([]string, len(pr.FollowUps))
	copy(out, pr.FollowUps)
	return out
}
