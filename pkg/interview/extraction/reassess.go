package extraction

import "fmt"

type band struct {
	min, max int
	fallback int
}

// bandFor maps the goal count to the allowed reassessment interval in months.
// A plan of four to six goals whose deadlines are mostly weekly or monthly
// is treated like a large plan.
func bandFor(goals []Goal) (band, bool) {
	n := len(goals)
	switch {
	case n <= 3:
		return band{min: 12, max: 12, fallback: 12}, false
	case n <= 6:
		if tightDeadlines(goals) {
			return band{min: 3, max: 4, fallback: 3}, true
		}
		return band{min: 6, max: 8, fallback: 6}, false
	default:
		return band{min: 3, max: 4, fallback: 3}, false
	}
}

func tightDeadlines(goals []Goal) bool {
	short := 0
	for _, g := range goals {
		if g.TimeframeSuggestion == Weekly || g.TimeframeSuggestion == Monthly {
			short++
		}
	}
	return short*2 >= len(goals)
}

// Recommend clamps the proposed month count into the band for goals. The
// proposed reason is kept when there is one.
func Recommend(goals []Goal, proposed Reassessment) Reassessment {
	b, tight := bandFor(goals)

	months := b.fallback
	if proposed.Months > 0 {
		months = min(max(proposed.Months, b.min), b.max)
	}

	reason := proposed.Reason
	if reason == "" {
		switch {
		case tight:
			reason = fmt.Sprintf("At least half of your %d goals run on weekly or monthly deadlines, so revisit the plan every %d months.", len(goals), months)
		default:
			reason = fmt.Sprintf("With %d goals, revisiting the plan every %d months keeps it current.", len(goals), months)
		}
	}
	return Reassessment{Months: months, Reason: reason}
}
