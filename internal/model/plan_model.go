package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Plan struct {
	Id                 uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserId             uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title              string         `gorm:"type:varchar(255);not null"`
	CurrentPhase       string         `gorm:"type:varchar(32);not null;default:'introduction'"`
	Mode               string         `gorm:"type:varchar(16);not null;default:'deep'"`
	ReassessmentMonths int            `gorm:"not null;default:0"`
	ReassessmentReason string         `gorm:"type:text"`
	LastExtractedAt    *time.Time
	CreatedAt          time.Time      `gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (Plan) TableName() string {
	return "plans"
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.Id == uuid.Nil {
		p.Id = uuid.New()
	}
	return nil
}

type PlanValue struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlanId      uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Confidence  float64   `gorm:"not null"`
	SourceQuote string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (PlanValue) TableName() string {
	return "plan_values"
}

func (v *PlanValue) BeforeCreate(tx *gorm.DB) error {
	if v.Id == uuid.Nil {
		v.Id = uuid.New()
	}
	return nil
}

type PlanGoal struct {
	Id                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PlanId                uuid.UUID  `gorm:"type:uuid;not null;index"`
	ValueId               *uuid.UUID `gorm:"type:uuid;index"`
	Title                 string     `gorm:"type:varchar(255);not null"`
	Description           string     `gorm:"type:text"`
	Confidence            float64    `gorm:"not null"`
	SourceQuote           string     `gorm:"type:text"`
	MeasurementSuggestion string     `gorm:"type:text"`
	Timeframe             string     `gorm:"type:varchar(16);not null"`
	IsReachGoal           bool       `gorm:"not null;default:false"`
	CreatedAt             time.Time  `gorm:"autoCreateTime"`
}

func (PlanGoal) TableName() string {
	return "plan_goals"
}

func (g *PlanGoal) BeforeCreate(tx *gorm.DB) error {
	if g.Id == uuid.Nil {
		g.Id = uuid.New()
	}
	return nil
}

type PlanTask struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlanId      uuid.UUID `gorm:"type:uuid;not null;index"`
	GoalId      uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Confidence  float64   `gorm:"not null"`
	SourceQuote string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (PlanTask) TableName() string {
	return "plan_tasks"
}

func (t *PlanTask) BeforeCreate(tx *gorm.DB) error {
	if t.Id == uuid.Nil {
		t.Id = uuid.New()
	}
	return nil
}

type ExtractionRun struct {
	Id                 uuid.UUID      `gorm:"type:uuid;primaryKey"`
	PlanId             uuid.UUID      `gorm:"type:uuid;not null;index"`
	ValueCount         int            `gorm:"not null"`
	GoalCount          int            `gorm:"not null"`
	TaskCount          int            `gorm:"not null"`
	Skipped            datatypes.JSON `gorm:"type:jsonb"`
	ReassessmentMonths int            `gorm:"not null"`
	CreatedAt          time.Time      `gorm:"autoCreateTime"`
}

func (ExtractionRun) TableName() string {
	return "plan_extraction_runs"
}

func (r *ExtractionRun) BeforeCreate(tx *gorm.DB) error {
	if r.Id == uuid.Nil {
		r.Id = uuid.New()
	}
	return nil
}
