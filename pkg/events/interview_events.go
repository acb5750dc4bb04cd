package events

import "time"

const (
	TypeTurnCompleted = "interview.turn_completed"
	TypePlanExtracted = "plan.extracted"
)

type TurnCompleted struct {
	PlanId             string
	Phase              string
	SuggestedNextPhase string // empty when no advance was suggested
	Mode               string
}

func NewTurnCompleted(t TurnCompleted, at time.Time) BaseEvent {
	data := map[string]interface{}{
		"plan_id": t.PlanId,
		"phase":   t.Phase,
		"mode":    t.Mode,
	}
	if t.SuggestedNextPhase != "" {
		data["suggested_next_phase"] = t.SuggestedNextPhase
	}
	return BaseEvent{Type: TypeTurnCompleted, Data: data, OccurredAt: at}
}

type PlanExtracted struct {
	PlanId             string
	Values             int
	Goals              int
	Tasks              int
	TasksDropped       int
	ReassessmentMonths int
}

func NewPlanExtracted(p PlanExtracted, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypePlanExtracted,
		Data: map[string]interface{}{
			"plan_id":             p.PlanId,
			"values":              p.Values,
			"goals":               p.Goals,
			"tasks":               p.Tasks,
			"tasks_dropped":       p.TasksDropped,
			"reassessment_months": p.ReassessmentMonths,
		},
		OccurredAt: at,
	}
}
