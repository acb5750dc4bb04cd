// Package document turns uploaded document excerpts into the plain-text block
// the prompt assembler places in its background layer.
package document

import (
	"fmt"
	"strings"

	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/prompt"
)

type Kind string

const (
	KindResume     Kind = "resume"
	KindJournal    Kind = "journal"
	KindAssessment Kind = "assessment"
	KindOther      Kind = "other"
)

// DefaultPerExcerptLimit bounds a single excerpt, in characters.
const DefaultPerExcerptLimit = 3000

// MaxExcerpts is the most excerpts accepted for one turn.
const MaxExcerpts = 10

type Excerpt struct {
	Kind Kind
	Text string
}

// ParseKind maps a free-form kind to a known one. Unknown kinds become "other".
func ParseKind(raw string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindResume, KindJournal, KindAssessment:
		return k
	default:
		return KindOther
	}
}

func (k Kind) label() string {
	switch k {
	case KindResume:
		return "Resume"
	case KindJournal:
		return "Journal entry"
	case KindAssessment:
		return "Assessment results"
	default:
		return "Document"
	}
}

// Validate rejects more than MaxExcerpts excerpts.
func Validate(excerpts []Excerpt) error {
	if len(excerpts) > MaxExcerpts {
		return &interview.ValidationError{
			Field:  "documents",
			Reason: fmt.Sprintf("has %d entries, at most %d allowed", len(excerpts), MaxExcerpts),
		}
	}
	return nil
}

// Compose labels each non-blank excerpt, bounds it to perExcerpt characters and
// then bounds the whole block to total characters. Zero limits disable bounding.
func Compose(excerpts []Excerpt, perExcerpt, total int) string {
	counts := map[Kind]int{}
	var parts []string
	for _, ex := range excerpts {
		text := strings.TrimSpace(ex.Text)
		if text == "" {
			continue
		}
		kind := ParseKind(string(ex.Kind))
		counts[kind]++
		label := kind.label()
		if counts[kind] > 1 {
			label = fmt.Sprintf("%s %d", label, counts[kind])
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", label, prompt.Truncate(text, perExcerpt)))
	}
	return prompt.Truncate(strings.Join(parts, "\n\n"), total)
}
