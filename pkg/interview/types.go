package interview

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Role identifies who authored a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Mode selects interview depth and pacing. It has no transitions of its own.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeDeep  Mode = "deep"
)

// ParseMode accepts "quick" or "deep" in any case. An empty string is not a mode.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeQuick:
		return ModeQuick, nil
	case ModeDeep:
		return ModeDeep, nil
	default:
		return "", &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", raw)}
	}
}

// Message is one entry of the append-only conversation history.
type Message struct {
	Id        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Limits enforced on the history handed to a turn.
const (
	MaxHistoryEntries    = 100
	MaxMessageContentLen = 50000
)

// ValidateHistory rejects oversized histories and unknown roles.
func ValidateHistory(history []Message) error {
	if len(history) > MaxHistoryEntries {
		return &ValidationError{
			Field:  "conversation_history",
			Reason: fmt.Sprintf("has %d entries, at most %d allowed", len(history), MaxHistoryEntries),
		}
	}
	for i, msg := range history {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			return &ValidationError{
				Field:  fmt.Sprintf("conversation_history[%d].role", i),
				Reason: fmt.Sprintf("unknown role %q", msg.Role),
			}
		}
		if len(msg.Content) > MaxMessageContentLen {
			return &ValidationError{
				Field:  fmt.Sprintf("conversation_history[%d].content", i),
				Reason: fmt.Sprintf("exceeds %d characters", MaxMessageContentLen),
			}
		}
	}
	return nil
}

// modeDirective matches a leading "[starting quick mode]" style marker.
var modeDirective = regexp.MustCompile(`(?i)^\s*\[\s*(?:starting|switching to|continuing in)\s+(quick|deep)\s+mode\s*\]\s*`)

// StripModeDirective removes every leading mode marker from text and reports the
// last mode it named. ok is false when text carried no marker.
func StripModeDirective(text string) (clean string, mode Mode, ok bool) {
	clean = text
	for {
		m := modeDirective.FindStringSubmatchIndex(clean)
		if m == nil {
			break
		}
		mode = Mode(strings.ToLower(clean[m[2]:m[3]]))
		ok = true
		clean = clean[m[1]:]
	}
	return strings.TrimSpace(clean), mode, ok
}
