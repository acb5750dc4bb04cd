package extraction

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// fields is one decoded JSON object whose members are read leniently: a bad
// member falls back to its default instead of failing the whole batch.
type fields map[string]json.RawMessage

// objects decodes raw as an array of objects. Anything else yields nothing;
// elements that are not objects are counted in invalid.
func objects(raw json.RawMessage) (out []fields, invalid int) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0
	}
	for _, item := range items {
		var f fields
		if err := json.Unmarshal(item, &f); err != nil || f == nil {
			invalid++
			continue
		}
		out = append(out, f)
	}
	return out, invalid
}

// str returns the first key holding a string or number, trimmed.
func (f fields) str(keys ...string) string {
	for _, key := range keys {
		raw, ok := f[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func (f fields) number(key string) (float64, bool) {
	raw, ok := f[key]
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func (f fields) boolean(key string) bool {
	raw, ok := f[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}

func (f fields) confidence() float64 {
	v, ok := f.number("confidence")
	if !ok || math.IsNaN(v) || v < 0 || v > 1 {
		return DefaultConfidence
	}
	return v
}

func (f fields) title(placeholder string) string {
	if t := f.str("title", "name"); t != "" {
		return t
	}
	return placeholder
}

func (f fields) value() Value {
	return Value{
		Title:       f.title(UntitledValue),
		Description: f.str("description"),
		Confidence:  f.confidence(),
		SourceQuote: f.str("source_quote"),
	}
}

func (f fields) goal() Goal {
	tf, _ := ParseTimeframe(f.str("timeframe_suggestion", "timeframe"))
	return Goal{
		Title:                 f.title(UntitledGoal),
		Description:           f.str("description"),
		Confidence:            f.confidence(),
		SourceQuote:           f.str("source_quote"),
		ParentValueTitle:      f.str("parent_value_title", "parent_title"),
		MeasurementSuggestion: f.str("measurement_suggestion"),
		TimeframeSuggestion:   tf,
		IsReachGoal:           f.boolean("is_reach_goal"),
	}
}

func (f fields) task() Task {
	return Task{
		Title:           f.title(UntitledTask),
		Description:     f.str("description"),
		Confidence:      f.confidence(),
		SourceQuote:     f.str("source_quote"),
		ParentGoalTitle: f.str("parent_goal_title", "parent_title"),
	}
}

func (f fields) reassessment() Reassessment {
	var inner fields
	if raw, ok := f["reassessment_recommendation"]; ok {
		_ = json.Unmarshal(raw, &inner)
	}
	if inner == nil {
		return Reassessment{}
	}
	months, _ := inner.number("months")
	return Reassessment{
		Months: int(math.Round(months)),
		Reason: inner.str("reason"),
	}
}
