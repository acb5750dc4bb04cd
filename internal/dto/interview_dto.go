package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreatePlanRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Mode  string `json:"mode" validate:"omitempty,oneof=quick deep"`
}

type CreatePlanResponse struct {
	Id           uuid.UUID `json:"id"`
	CurrentPhase string    `json:"current_phase"`
	Mode         string    `json:"mode"`
}

type ConversationMessage struct {
	Id        string    `json:"id"`
	Role      string    `json:"role" validate:"required,oneof=user assistant"`
	Content   string    `json:"content" validate:"max=50000"`
	Timestamp time.Time `json:"timestamp"`
}

type DocumentExcerpt struct {
	Kind string `json:"kind"`
	Text string `json:"text" validate:"required"`
}

// TurnRequest carries the whole conversation so far; nothing is read back
// from storage to answer a turn.
type TurnRequest struct {
	PlanId              uuid.UUID
	Message             string                `json:"message" validate:"required,max=50000"`
	Phase               string                `json:"phase" validate:"required"`
	Mode                string                `json:"mode"`
	ConversationHistory []ConversationMessage `json:"conversation_history" validate:"max=100,dive"`
	Documents           []DocumentExcerpt     `json:"documents" validate:"max=10,dive"`
	PlanContext         string                `json:"plan_context"`
}

type TurnResponse struct {
	Message            string   `json:"message"`
	Phase              string   `json:"phase"`
	SuggestedNextPhase *string  `json:"suggested_next_phase,omitempty"`
	FollowUpQuestions  []string `json:"follow_up_questions"`
	Mode               string   `json:"mode"`
}

type ExtractRequest struct {
	PlanId     uuid.UUID
	Transcript []ConversationMessage `json:"transcript" validate:"required,min=1,dive"`
	Documents  []DocumentExcerpt     `json:"documents" validate:"max=10,dive"`
}

type ValueResponse struct {
	Id          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Confidence  float64   `json:"confidence"`
	SourceQuote string    `json:"source_quote,omitempty"`
}

type GoalResponse struct {
	Id                    uuid.UUID  `json:"id"`
	ValueId               *uuid.UUID `json:"value_id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description,omitempty"`
	Confidence            float64    `json:"confidence"`
	SourceQuote           string     `json:"source_quote,omitempty"`
	MeasurementSuggestion string     `json:"measurement_suggestion,omitempty"`
	Timeframe             string     `json:"timeframe"`
	IsReachGoal           bool       `json:"is_reach_goal"`
}

type TaskResponse struct {
	Id          uuid.UUID `json:"id"`
	GoalId      uuid.UUID `json:"goal_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Confidence  float64   `json:"confidence"`
	SourceQuote string    `json:"source_quote,omitempty"`
}

type ReassessmentResponse struct {
	Months int    `json:"months"`
	Reason string `json:"reason"`
}

type SkippedResponse struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

type ExtractResponse struct {
	Values       []ValueResponse      `json:"values"`
	Goals        []GoalResponse       `json:"goals"`
	Tasks        []TaskResponse       `json:"tasks"`
	Reassessment ReassessmentResponse `json:"reassessment_recommendation"`
	Skipped      []SkippedResponse    `json:"skipped"`
}

type PlanDetailResponse struct {
	Id              uuid.UUID             `json:"id"`
	Title           string                `json:"title"`
	CurrentPhase    string                `json:"current_phase"`
	Mode            string                `json:"mode"`
	Reassessment    *ReassessmentResponse `json:"reassessment_recommendation,omitempty"`
	LastExtractedAt *time.Time            `json:"last_extracted_at"`
	Values          []ValueResponse       `json:"values"`
	Goals           []GoalResponse        `json:"goals"`
	Tasks           []TaskResponse        `json:"tasks"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       *time.Time            `json:"updated_at"`
}

type PhaseResponse struct {
	Id                string   `json:"id"`
	Title             string   `json:"title"`
	Ordinal           int      `json:"ordinal"`
	Terminal          bool     `json:"terminal"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}
