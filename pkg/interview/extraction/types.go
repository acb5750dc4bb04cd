package extraction

import "strings"

// Timeframe is the suggested cadence for a goal.
type Timeframe string

const (
	Weekly    Timeframe = "weekly"
	Monthly   Timeframe = "monthly"
	Quarterly Timeframe = "quarterly"
	Yearly    Timeframe = "yearly"
	Custom    Timeframe = "custom"
)

// DefaultTimeframe replaces anything outside the known set.
const DefaultTimeframe = Quarterly

// DefaultConfidence replaces a missing or out-of-range confidence.
const DefaultConfidence = 0.5

// Titles used when the model leaves one out.
const (
	UntitledValue = "Untitled value"
	UntitledGoal  = "Untitled goal"
	UntitledTask  = "Untitled task"
)

func ParseTimeframe(raw string) (Timeframe, bool) {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(raw))); tf {
	case Weekly, Monthly, Quarterly, Yearly, Custom:
		return tf, true
	default:
		return DefaultTimeframe, false
	}
}

// Value is a guiding principle the user voiced.
type Value struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	SourceQuote string  `json:"source_quote,omitempty" yaml:"source_quote,omitempty"`
}

// Goal may hang under a value. ParentValueTitle is empty when no value in the
// same batch matched.
type Goal struct {
	Title                 string    `json:"title" yaml:"title"`
	Description           string    `json:"description,omitempty" yaml:"description,omitempty"`
	Confidence            float64   `json:"confidence" yaml:"confidence"`
	SourceQuote           string    `json:"source_quote,omitempty" yaml:"source_quote,omitempty"`
	ParentValueTitle      string    `json:"parent_value_title,omitempty" yaml:"parent_value_title,omitempty"`
	MeasurementSuggestion string    `json:"measurement_suggestion,omitempty" yaml:"measurement_suggestion,omitempty"`
	TimeframeSuggestion   Timeframe `json:"timeframe_suggestion" yaml:"timeframe_suggestion"`
	IsReachGoal           bool      `json:"is_reach_goal" yaml:"is_reach_goal"`
}

// Task always belongs to a goal of the same batch.
type Task struct {
	Title           string  `json:"title" yaml:"title"`
	Description     string  `json:"description,omitempty" yaml:"description,omitempty"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	SourceQuote     string  `json:"source_quote,omitempty" yaml:"source_quote,omitempty"`
	ParentGoalTitle string  `json:"parent_goal_title" yaml:"parent_goal_title"`
}

type Reassessment struct {
	Months int    `json:"months" yaml:"months"`
	Reason string `json:"reason" yaml:"reason"`
}

// Skipped is an entity the model proposed that was not kept.
type Skipped struct {
	Kind   string `json:"kind" yaml:"kind"`
	Title  string `json:"title" yaml:"title"`
	Reason string `json:"reason" yaml:"reason"`
}

type Result struct {
	Values       []Value      `json:"values" yaml:"values"`
	Goals        []Goal       `json:"goals" yaml:"goals"`
	Tasks        []Task       `json:"tasks" yaml:"tasks"`
	Reassessment Reassessment `json:"reassessment_recommendation" yaml:"reassessment_recommendation"`
	Skipped      []Skipped    `json:"skipped" yaml:"skipped"`
}
