package entity

import (
	"time"

	"github.com/google/uuid"
)

type Plan struct {
	Id                 uuid.UUID
	UserId             uuid.UUID
	Title              string
	CurrentPhase       string
	Mode               string
	ReassessmentMonths int
	ReassessmentReason string
	LastExtractedAt    *time.Time
	CreatedAt          time.Time
	UpdatedAt          *time.Time
	DeletedAt          *time.Time
	IsDeleted          bool
}

type PlanValue struct {
	Id          uuid.UUID
	PlanId      uuid.UUID
	Title       string
	Description string
	Confidence  float64
	SourceQuote string
	CreatedAt   time.Time
}

// PlanGoal.ValueId is nil for a goal that matched no value.
type PlanGoal struct {
	Id                    uuid.UUID
	PlanId                uuid.UUID
	ValueId               *uuid.UUID
	Title                 string
	Description           string
	Confidence            float64
	SourceQuote           string
	MeasurementSuggestion string
	Timeframe             string
	IsReachGoal           bool
	CreatedAt             time.Time
}

type PlanTask struct {
	Id          uuid.UUID
	PlanId      uuid.UUID
	GoalId      uuid.UUID
	Title       string
	Description string
	Confidence  float64
	SourceQuote string
	CreatedAt   time.Time
}

// SkippedEntity is an extracted item that was not saved.
type SkippedEntity struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// ExtractionRun is the audit record of one successful extraction.
type ExtractionRun struct {
	Id                 uuid.UUID
	PlanId             uuid.UUID
	ValueCount         int
	GoalCount          int
	TaskCount          int
	Skipped            []SkippedEntity
	ReassessmentMonths int
	CreatedAt          time.Time
}
